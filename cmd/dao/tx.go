package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/calehh/dao-app/crypto"
	"github.com/calehh/dao-app/tx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// signerAddress is the address of the key the command signs with. Every call
// acts as its signer.
func signerAddress(args *txArguments) (string, error) {
	pv, err := crypto.LoadFilePV(args.Skey)
	if err != nil {
		return "", err
	}
	return pv.Address(), nil
}

func parseProposalId(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q: %w", s, err)
	}
	return uint32(id), nil
}

var initializeArgs txArguments

var initializeCmd = &cobra.Command{
	Use:   "initialize <token>",
	Short: "Initialize the DAO instance with the signer as admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, err := signerAddress(&initializeArgs)
		if err != nil {
			return err
		}
		return sendTx(&initializeArgs, tx.DAOTxTypeInitialize, &tx.InitializeTx{Admin: admin, Token: args[0]})
	},
}

var addMemberArgs txArguments

var addMemberCmd = &cobra.Command{
	Use:   "addmember <address>",
	Short: "Admit a member and transfer the member allotment from the admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, err := signerAddress(&addMemberArgs)
		if err != nil {
			return err
		}
		return sendTx(&addMemberArgs, tx.DAOTxTypeAddMember, &tx.AddMemberTx{Admin: admin, Member: args[0]})
	},
}

type proposeArguments struct {
	txArguments
	Description string
	Target      string
	Function    string
	Params      []string
	Deadline    uint64
}

var proposeArgs proposeArguments

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Create a proposal calling function on target once passed",
	Args:  cobra.ExactArgs(0),
	RunE:  proposeRun,
}

func proposeRun(cmd *cobra.Command, args []string) error {
	proposer, err := signerAddress(&proposeArgs.txArguments)
	if err != nil {
		return err
	}
	params := make([][]byte, 0, len(proposeArgs.Params))
	for _, p := range proposeArgs.Params {
		dat, err := hex.DecodeString(p)
		if err != nil {
			return fmt.Errorf("invalid hex parameter %q: %w", p, err)
		}
		params = append(params, dat)
	}
	ptx := &tx.CreateProposalTx{
		Proposer:          proposer,
		Description:       common.HexToHash(proposeArgs.Description),
		Target:            proposeArgs.Target,
		Function:          proposeArgs.Function,
		Parameters:        params,
		DeadlineInSeconds: proposeArgs.Deadline,
	}
	return sendTx(&proposeArgs.txArguments, tx.DAOTxTypeCreateProposal, ptx)
}

type voteArguments struct {
	txArguments
	Against bool
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote <proposal>",
	Short: "Vote for a proposal, or against it with --against",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseProposalId(args[0])
		if err != nil {
			return err
		}
		voter, err := signerAddress(&voteArgs.txArguments)
		if err != nil {
			return err
		}
		return sendTx(&voteArgs.txArguments, tx.DAOTxTypeVote, &tx.VoteTx{Voter: voter, Proposal: id, VoteFor: !voteArgs.Against})
	},
}

var executeArgs txArguments

var executeCmd = &cobra.Command{
	Use:   "execute <proposal>",
	Short: "Finalize a proposal, dispatching its call when passed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseProposalId(args[0])
		if err != nil {
			return err
		}
		caller, err := signerAddress(&executeArgs)
		if err != nil {
			return err
		}
		return sendTx(&executeArgs, tx.DAOTxTypeExecuteProposal, &tx.ExecuteProposalTx{Caller: caller, Proposal: id})
	},
}

func init() {
	txFlags(initializeCmd, &initializeArgs)
	txFlags(addMemberCmd, &addMemberArgs)

	txFlags(proposeCmd, &proposeArgs.txArguments)
	proposeCmd.Flags().StringVar(&proposeArgs.Description, "description", "", "32 byte description hash, hex")
	proposeCmd.Flags().StringVar(&proposeArgs.Target, "target", "", "target contract address")
	proposeCmd.Flags().StringVar(&proposeArgs.Function, "function", "", "function name on target")
	proposeCmd.Flags().StringArrayVar(&proposeArgs.Params, "param", nil, "hex encoded call parameter, repeatable")
	proposeCmd.Flags().Uint64Var(&proposeArgs.Deadline, "deadline", 0, "voting period in seconds")

	txFlags(voteCmd, &voteArgs.txArguments)
	voteCmd.Flags().BoolVar(&voteArgs.Against, "against", false, "vote against the proposal")

	txFlags(executeCmd, &executeArgs)
}
