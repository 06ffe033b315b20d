package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/vessel/cmd"
	ledgererr "github.com/mezonai/vessel/errors"
	"github.com/mezonai/vessel/logx"
)

// Exit status 2 means the command ran but the ledger failed verification.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case ledgererr.CodeOf(err) == ledgererr.ErrCodeChainInvalid:
		return 2
	default:
		return 1
	}
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("MAIN", "Unrecovered panic: ", r, "\n", string(debug.Stack()))
			os.Exit(1)
		}
	}()

	os.Exit(exitCode(cmd.Execute()))
}
