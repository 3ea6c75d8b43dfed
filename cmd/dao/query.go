package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queryUrl string

func queryCommand(use, short string, nargs int, path func(args []string) string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryJSON(queryUrl, path(args), nil)
		},
	}
	urlFlag(cmd, &queryUrl)
	return cmd
}

var memberCmd = queryCommand("member [address]", "Show a member, or list all members without an address", 0, nil)

var proposalCmd = queryCommand("proposal <id>", "Show a proposal", 1, func(args []string) string {
	return "/proposal/" + args[0]
})

var daoCmd = queryCommand("info", "Show the DAO admin, token and proposal count", 0, func(args []string) string {
	return "/dao/"
})

var balanceCmd = queryCommand("balance <token> <holder>", "Show a token balance", 2, func(args []string) string {
	return fmt.Sprintf("/balance/%s/%s", args[0], args[1])
})

var accountCmd = queryCommand("account <address>", "Show a signer account and its next nonce", 1, func(args []string) string {
	return "/account/" + args[0]
})

func init() {
	memberCmd.Args = cobra.MaximumNArgs(1)
	memberCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return queryJSON(queryUrl, "/members/", nil)
		}
		return queryJSON(queryUrl, "/member/"+args[0], nil)
	}
}
