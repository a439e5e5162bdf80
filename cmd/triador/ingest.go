package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lewtec/triador/internal/domain"
	"github.com/lewtec/triador/internal/storage"
)

// ingestCmd imports images into the input folder, content-addressed so the
// same picture is never queued twice.
var ingestCmd = &cobra.Command{
	Use:   "ingest SRC...",
	Short: "Import images into the input folder",
	Long: `Walks the given directories, re-encodes every decodable image as PNG and
stores it in the input folder under its content hash. Files whose content is
already present are skipped.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
			return err
		}
		for i, input := range args {
			fileInfo, err := os.Stat(input)
			if err != nil {
				return fmt.Errorf("on %dth argument: %w", i+1, err)
			}
			if !fileInfo.IsDir() {
				return fmt.Errorf("on %dth argument: must be a directory", i+1)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfigAndLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		store := storage.NewOS(cfg.WorkingDir, cfg.Extensions)
		if err := store.EnsureLayout(); err != nil {
			return err
		}

		ingested, skipped := 0, 0
		for _, src := range args {
			err := filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if entry.IsDir() {
					return nil
				}
				added, err := ingestFile(store, path)
				if err != nil {
					logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
					return nil
				}
				if added {
					ingested++
				} else {
					skipped++
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		logger.Info("ingest finished", zap.Int("ingested", ingested), zap.Int("duplicates", skipped))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

// ingestFile decodes one image and stores it content-addressed in the input
// folder. It reports whether a new file was written.
func ingestFile(store *storage.WorkDir, path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return false, fmt.Errorf("not a decodable image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return false, err
	}
	name := storage.Hash(buf.Bytes()) + ".png"
	exists, err := store.HasImage(domain.InputFolder, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	return true, store.WriteImage(domain.InputFolder, name, buf.Bytes())
}
