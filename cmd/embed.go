package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mezonai/vessel/stego"
)

var (
	embedCover  string
	embedOutDir string
	revealOut   string
	workers     int
)

var embedCmd = &cobra.Command{
	Use:   "embed FILE...",
	Short: "Embed arbitrary files into PNGs",
	Long: `Embed writes each FILE into its own PNG under --out-dir, named after the
file. Files are processed in parallel.
Examples:
  vessel embed chapter1.json chapter2.json --out-dir artifacts
  vessel embed notes.txt --cover art.png --out-dir artifacts
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputs, err := outputPaths(args, embedOutDir, ".png")
		if err != nil {
			return err
		}
		jobs := make([]stego.Job, 0, len(args))
		for i, path := range args {
			jobs = append(jobs, stego.Job{
				CoverPath:   embedCover,
				PayloadPath: path,
				OutputPath:  outputs[i],
			})
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := stego.EncodeAll(ctx, jobs, workerCount()); err != nil {
			return err
		}

		if globalOpts.jsonOutput {
			return printJSON(outputs)
		}
		for _, j := range jobs {
			pterm.Success.Printfln("%s -> %s", j.PayloadPath, j.OutputPath)
		}
		return nil
	},
}

var revealCmd = &cobra.Command{
	Use:   "reveal IMAGE...",
	Short: "Recover files embedded with embed",
	Long: `Reveal extracts the payload of each IMAGE. With one image and no --out-dir
the payload goes to stdout; otherwise each payload is written to --out-dir
under the image name without its extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if revealOut == "" && len(args) > 1 {
			return fmt.Errorf("--out-dir is required when revealing more than one image")
		}
		var outputs []string
		if revealOut != "" {
			var err error
			if outputs, err = outputPaths(args, revealOut, ""); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		payloads, err := stego.DecodeAll(ctx, args, workerCount())
		if err != nil {
			return err
		}

		if revealOut == "" {
			_, err := os.Stdout.Write(payloads[0])
			return err
		}

		if err := os.MkdirAll(revealOut, 0755); err != nil {
			return err
		}
		for i, path := range args {
			out := outputs[i]
			if err := os.WriteFile(out, payloads[i], 0644); err != nil {
				return err
			}
			if !globalOpts.jsonOutput {
				pterm.Success.Printfln("%s -> %s (%d bytes)", path, out, len(payloads[i]))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(revealCmd)
	embedCmd.Flags().StringVar(&embedCover, "cover", "", "cover PNG shared by every file (generated when empty)")
	embedCmd.Flags().StringVarP(&embedOutDir, "out-dir", "o", ".", "directory for the produced PNGs")
	revealCmd.Flags().StringVarP(&revealOut, "out-dir", "o", "", "directory for the recovered files")
	for _, c := range []*cobra.Command{embedCmd, revealCmd} {
		c.Flags().IntVarP(&workers, "workers", "w", 0, "parallel jobs (defaults to [stego] workers)")
	}
}

func workerCount() int {
	if workers > 0 {
		return workers
	}
	if cfg, err := loadRuntimeConfig(); err == nil {
		return cfg.Stego.Workers
	}
	return 1
}

func artifactName(path string) string {
	base := filepath.Base(path)
	if isPNG(base) {
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

// outputPaths names one file under dir per input. Inputs that share a base
// name would overwrite each other, so they are rejected.
func outputPaths(inputs []string, dir, ext string) ([]string, error) {
	outputs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, path := range inputs {
		out := filepath.Join(dir, artifactName(path)+ext)
		if prev, ok := seen[out]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, path, out)
		}
		seen[out] = path
		outputs[i] = out
	}
	return outputs, nil
}
