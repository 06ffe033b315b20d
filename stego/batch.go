package stego

import (
	"context"
	"fmt"
	"image"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/mezonai/vessel/exception"
	"github.com/mezonai/vessel/logx"
)

// Job embeds the contents of PayloadPath (or Payload when set) into the cover at
// CoverPath and writes the result to OutputPath. An empty CoverPath generates a
// cover just large enough for the payload.
type Job struct {
	CoverPath   string
	PayloadPath string
	Payload     []byte
	OutputPath  string
}

func (j Job) payload() ([]byte, error) {
	if j.Payload != nil {
		return j.Payload, nil
	}
	data, err := os.ReadFile(j.PayloadPath)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

func (j Job) run() error {
	payload, err := j.payload()
	if err != nil {
		return err
	}

	var cover image.Image
	if j.CoverPath == "" {
		cover = NewCover(SideFor(uint64(len(payload)), DefaultMinSide), DefaultFill)
	} else {
		cover, err = LoadPNG(j.CoverPath)
		if err != nil {
			return fmt.Errorf("load cover: %w", err)
		}
	}

	out, err := Encode(cover, payload)
	if err != nil {
		return err
	}
	return SavePNG(j.OutputPath, out)
}

// EncodeAll runs independent embed jobs with at most workers in flight. The
// first failure cancels the jobs not yet started and is returned.
func EncodeAll(ctx context.Context, jobs []Job, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := exception.Run("embed "+job.OutputPath, job.run); err != nil {
				return fmt.Errorf("embed into %s: %w", job.OutputPath, err)
			}
			logx.Info("STEGO", fmt.Sprintf("Embedded payload into %s", job.OutputPath))
			return nil
		})
	}
	return g.Wait()
}

// DecodeAll extracts the payloads of the PNG files at paths, in order, with at
// most workers decoding concurrently.
func DecodeAll(ctx context.Context, paths []string, workers int) ([][]byte, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([][]byte, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return exception.Run("extract "+path, func() error {
				img, err := LoadPNG(path)
				if err != nil {
					return err
				}
				payload, err := Decode(img)
				if err != nil {
					return fmt.Errorf("extract from %s: %w", path, err)
				}
				results[i] = payload
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
