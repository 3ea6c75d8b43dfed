package types

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestExecuteProposalEventResult(t *testing.T) {
	in := &EventExecuteProposal{ProposalId: 3, Caller: "BOB", Status: uint64(ProposalStatusExecuted), Result: []byte{0xff, 0x00, 0xfe}}
	event := EncodeEventExecuteProposal(in)
	for _, attr := range event.Attributes {
		require.True(t, utf8.ValidString(attr.Value))
		if attr.Key == "result" {
			require.Equal(t, "ff00fe", attr.Value)
		}
	}
	require.Equal(t, in, DecodeEventExecuteProposal(event))

	event.Attributes[3].Value = "zz"
	require.Nil(t, DecodeEventExecuteProposal(event))
}
