package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-captable/internal/domain"
	"solana-captable/internal/solana"
	"solana-captable/internal/solana/stub"
	"solana-captable/internal/storage/memory"
)

const testProgram = "CapTab1eProgram1111111111111111111111111111"

func eventTx(signature string, slot int64, lines ...string) *solana.Transaction {
	return &solana.Transaction{
		Signature:   signature,
		Slot:        slot,
		BlockTime:   1_700_000_000 + slot,
		LogMessages: lines,
	}
}

func TestPollReturnsEventsOldestFirst(t *testing.T) {
	rpc := stub.NewRPCClient()
	progress := memory.NewIndexProgressStore()
	src := NewRPCEventSource(RPCEventSourceOptions{
		RPC: rpc, Progress: progress, Program: testProgram,
	})
	ctx := context.Background()

	rpc.AddTransaction(testProgram, eventTx("sig-1", 100,
		`Program log: EVENT:{"event":"approval","mint":"tok-1","wallet":"alice"}`))
	rpc.AddTransaction(testProgram, eventTx("sig-2", 101,
		`Program log: EVENT:{"event":"mint","mint":"tok-1","wallet":"alice","amount":500,"share_class_id":"common"}`))

	events, inits, err := src.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, inits)
	require.Len(t, events, 2)
	require.Equal(t, domain.KindApproval, events[0].Kind)
	require.Equal(t, domain.KindMint, events[1].Kind)

	p, err := progress.Get(ctx, testProgram)
	require.NoError(t, err)
	require.Equal(t, "sig-2", p.Signature)
	require.Equal(t, int64(101), p.Slot)
}

func TestPollResumesFromLastSignature(t *testing.T) {
	rpc := stub.NewRPCClient()
	src := NewRPCEventSource(RPCEventSourceOptions{
		RPC: rpc, Progress: memory.NewIndexProgressStore(), Program: testProgram,
	})
	ctx := context.Background()

	rpc.AddTransaction(testProgram, eventTx("sig-1", 100,
		`Program log: EVENT:{"event":"approval","mint":"tok-1","wallet":"alice"}`))

	events, _, err := src.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// Nothing new confirmed between polls.
	events, _, err = src.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, events)

	rpc.AddTransaction(testProgram, eventTx("sig-2", 105,
		`Program log: EVENT:{"event":"approval","mint":"tok-1","wallet":"bob"}`))

	events, _, err = src.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "bob", events[0].Wallet)
}

func TestPollSkipsFailedTransactions(t *testing.T) {
	rpc := stub.NewRPCClient()
	src := NewRPCEventSource(RPCEventSourceOptions{
		RPC: rpc, Progress: memory.NewIndexProgressStore(), Program: testProgram,
	})

	failed := eventTx("sig-1", 100,
		`Program log: EVENT:{"event":"approval","mint":"tok-1","wallet":"alice"}`)
	failed.Err = "InstructionError"
	rpc.AddTransaction(testProgram, failed)

	events, inits, err := src.Poll(context.Background())
	require.NoError(t, err)
	require.Empty(t, events)
	require.Empty(t, inits)
}

func TestPollSurfacesTokenInits(t *testing.T) {
	rpc := stub.NewRPCClient()
	src := NewRPCEventSource(RPCEventSourceOptions{
		RPC: rpc, Progress: memory.NewIndexProgressStore(), Program: testProgram,
	})

	rpc.AddTransaction(testProgram, eventTx("sig-1", 90,
		`Program log: EVENT:{"event":"token_initialize","mint":"tok-1","symbol":"ACME","authority":"admin"}`))

	events, inits, err := src.Poll(context.Background())
	require.NoError(t, err)
	require.Empty(t, events)
	require.Len(t, inits, 1)
	require.Equal(t, "tok-1", inits[0].TokenID)
}
