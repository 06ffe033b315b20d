package cmd

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/mezonai/vessel/exchange"
	"github.com/mezonai/vessel/ledger"
	"github.com/mezonai/vessel/stringutil"
)

// renderBlocks prints the chain as a table, one row per block
func renderBlocks(blocks []ledger.Block) error {
	if len(blocks) == 0 {
		pterm.Info.Println("Ledger is empty")
		return nil
	}
	data := pterm.TableData{{"Index", "Timestamp", "Kind", "Payload", "Hash"}}
	for _, b := range blocks {
		payload := b.Payload.String()
		if r := []rune(payload); len(r) > 48 {
			payload = string(r[:48]) + "…"
		}
		data = append(data, []string{
			strconv.FormatUint(b.Index, 10),
			ledger.FormatTimestamp(b.Timestamp),
			string(b.Payload.Kind),
			payload,
			stringutil.ShortenLog(b.Hash),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderValidation(v ledger.ValidationResult) {
	if v.Valid {
		pterm.Success.Printfln("Chain valid (%d blocks)", v.Length)
		return
	}
	pterm.Error.Printfln("Chain invalid at block %d: %s", v.FirstInvalid, v.Reason)
	if v.Expected != "" || v.Actual != "" {
		pterm.Printfln("  expected %s\n  actual   %s", v.Expected, v.Actual)
	}
}

// renderReport shows an image verification report in a titled box
func renderReport(r exchange.Report) {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	status := pterm.LightGreen("VALID")
	if !r.Valid {
		status = pterm.LightRed(fmt.Sprintf("INVALID at block %d (%s)", r.FirstInvalid, r.Reason))
	}
	body := pterm.Sprintfln("Status:  %s", status) +
		pterm.Sprintfln("Blocks:  %d", r.Blocks) +
		pterm.Sprintfln("Payload: %d bytes", r.PayloadBytes) +
		pterm.Sprintf("CRC-32:  %s", r.CRC)
	if r.Digest != "" {
		body += pterm.Sprintf("\nDigest:  %s", r.Digest)
	}
	pbox.WithTitle(pterm.LightYellow("|IMAGE REPORT|")).WithTitleTopCenter().Println(body)
}

func renderDrift(r ledger.RehashResult) {
	if len(r.Drifted) == 0 {
		pterm.Success.Println("No drift: every stored hash matches")
		return
	}
	verb := "Repaired"
	if r.DryRun {
		verb = "Would repair"
	}
	pterm.Warning.Printfln("%s %d block(s): %v", verb, len(r.Drifted), r.Drifted)
}
