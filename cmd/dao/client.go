package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/calehh/dao-app/crypto"
	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

// txArguments are the flags shared by every tx sending command.
type txArguments struct {
	Url    string
	Nonce  uint64
	Skey   string
	NoSend bool
}

func queryJSON(url, path string, v any) error {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return err
	}
	res, err := cli.ABCIQuery(context.Background(), path, nil)
	if err != nil {
		return err
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %v failed, code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	if v == nil {
		fmt.Println(string(res.Response.Value))
		return nil
	}
	return json.Unmarshal(res.Response.Value, v)
}

func queryAccount(url string, address string) (*state.Account, error) {
	var act state.Account
	if err := queryJSON(url, "/account/"+address, &act); err != nil {
		return nil, err
	}
	return &act, nil
}

// sendTx signs payload with the key at args.Skey and broadcasts it, waiting
// for the tx to be committed.
func sendTx(args *txArguments, tp tx.DAOTxType, payload any) error {
	cli, err := http.New(args.Url, "/websocket")
	if err != nil {
		return err
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	chainId := gres.Genesis.ChainID

	pv, err := crypto.LoadFilePV(args.Skey)
	if err != nil {
		return err
	}
	nonce := args.Nonce
	if nonce == 0 {
		act, err := queryAccount(args.Url, pv.Address())
		if err != nil {
			return err
		}
		nonce = act.Nonce
	}
	btx := &tx.DAOTx{
		Version: tx.DAOTxVersion1,
		Type:    tp,
		Nonce:   nonce,
		Tx:      payload,
	}
	if err = tx.Sign(btx, chainId, pv); err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalDAOTx(btx)
	if err != nil {
		return err
	}
	if args.NoSend {
		fmt.Println("signer:", pv.Address())
		fmt.Println("tx:", hex.EncodeToString(dat))
		return nil
	}
	res, err := cli.BroadcastTxCommit(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	out, _ := json.MarshalIndent(res, "", " ")
	fmt.Println(string(out))
	if res.CheckTx.Code != 0 {
		return fmt.Errorf("check tx failed, code %d: %s", res.CheckTx.Code, res.CheckTx.Log)
	}
	if res.TxResult.Code != 0 {
		return fmt.Errorf("tx failed, code %d: %s", res.TxResult.Code, res.TxResult.Log)
	}
	return nil
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	skeyFlag(cmd, &args.Skey)
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce, queried from the node when 0")
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "not send transaction but print it")
}
