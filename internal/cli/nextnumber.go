package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avior/policyvault/internal/core"
)

var nextNumberCmd = &cobra.Command{
	Use:   "next-number <category>",
	Short: "Preview the next document number in a category",
	Args:  cobra.ExactArgs(1),
	Run:   runNextNumber,
}

func runNextNumber(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	n, err := core.NextNumber(c.Store, args[0])
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("%s-%d\n", args[0], n)
}
