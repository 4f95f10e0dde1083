package chainstate

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AccountMeta mirrors a Solana instruction's account reference.
type AccountMeta struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Meta is a small constructor for AccountMeta, matching the positional
// style solana-go's own instruction builders use.
func Meta(key solana.PublicKey, isSigner, isWritable bool) AccountMeta {
	return AccountMeta{Key: key, IsSigner: isSigner, IsWritable: isWritable}
}

// Instruction is the simulator's account of one instruction: a program
// id, its account list, and its opaque data payload.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// FromSolanaInstruction adapts a real solana-go Instruction (as built by
// github.com/gagliardetto/solana-go/programs/token,
// .../associated-token-account or .../system) into the simulator's own
// Instruction type, so a bracket's middleware slots can be assembled
// with the same builders a real relayer would use on-chain.
func FromSolanaInstruction(ix solana.Instruction) (Instruction, error) {
	data, err := ix.Data()
	if err != nil {
		return Instruction{}, fmt.Errorf("chainstate: encode instruction data: %w", err)
	}
	accounts := ix.Accounts()
	metas := make([]AccountMeta, len(accounts))
	for i, a := range accounts {
		metas[i] = AccountMeta{Key: a.PublicKey, IsSigner: a.IsSigner, IsWritable: a.IsWritable}
	}
	return Instruction{ProgramID: ix.ProgramID(), Accounts: metas, Data: data}, nil
}

// ToSolanaInstruction adapts the simulator's own Instruction back into a
// real solana-go Instruction, so a built bracket can be serialized into
// an actual wire transaction for submission by the submit package.
func (ix Instruction) ToSolanaInstruction() solana.Instruction {
	metas := make([]*solana.AccountMeta, len(ix.Accounts))
	for i, a := range ix.Accounts {
		metas[i] = &solana.AccountMeta{PublicKey: a.Key, IsSigner: a.IsSigner, IsWritable: a.IsWritable}
	}
	return solana.NewInstruction(ix.ProgramID, metas, ix.Data)
}

// Transaction is an ordered list of instructions, the unit a bracket
// reasons about. It plays the role of Solana's sysvar::instructions: the
// Admission Controller reads it positionally from within what is,
// conceptually, its own first instruction.
type Transaction struct {
	Instructions []Instruction
}

// At returns the instruction at index i, the simulated equivalent of
// load_instruction_at_checked against the instructions sysvar.
func (tx *Transaction) At(i int) (Instruction, error) {
	if i < 0 || i >= len(tx.Instructions) {
		return Instruction{}, fmt.Errorf("chainstate: instruction index %d out of range (len=%d)", i, len(tx.Instructions))
	}
	return tx.Instructions[i], nil
}
