package main

import (
	"fmt"
	"os"
)

func main() {
	clCmd.AddCommand(initCmd)
	clCmd.AddCommand(versionCmd)
	clCmd.AddCommand(pubkeyCmd)
	clCmd.AddCommand(accountCmd)
	clCmd.AddCommand(initializeCmd)
	clCmd.AddCommand(addMemberCmd)
	clCmd.AddCommand(proposeCmd)
	clCmd.AddCommand(voteCmd)
	clCmd.AddCommand(executeCmd)
	clCmd.AddCommand(memberCmd)
	clCmd.AddCommand(proposalCmd)
	clCmd.AddCommand(daoCmd)
	clCmd.AddCommand(balanceCmd)
	if err := clCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
