package cmd

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"dappsuite/sdk"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "generate a fresh signing identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := sdk.NewKeypair()
		if err != nil {
			return err
		}
		fmt.Printf("address: %s\n", kp.Address())
		fmt.Printf("seed:    %s\n", base58.Encode(kp.Seed()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
