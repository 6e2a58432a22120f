package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/app"
	"github.com/custodia-labs/ragbot/internal/core/domain"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload documents",
	Long: `Extracts, chunks and indexes each file. PDF, DOCX and TXT files are
supported. A failing file is reported and the remaining files still upload.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		files, results := readUploadFiles(args)
		if len(files) > 0 {
			results = append(results, a.Documents.Upload(ctx, userID, files)...)
		}
		return printUploadResults(cmd, results)
	})
}

// readUploadFiles loads each path. Unreadable paths come back as failed
// results instead of files.
func readUploadFiles(paths []string) ([]domain.UploadFile, []domain.UploadResult) {
	var files []domain.UploadFile
	var failed []domain.UploadResult
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			failed = append(failed, domain.UploadResult{FileName: filepath.Base(path), Err: err})
			continue
		}
		files = append(files, domain.UploadFile{Name: filepath.Base(path), Data: data})
	}
	return files, failed
}

func printUploadResults(cmd *cobra.Command, results []domain.UploadResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			cmd.Printf("✗ %s: %s\n", r.FileName, uploadErrorText(r.Err))
			continue
		}
		cmd.Printf("✓ %s (%d %s)\n", r.FileName, r.Chunks, plural(r.Chunks, "chunk"))
	}
	if failed > 0 {
		return &userError{msg: fmt.Sprintf("%d of %d files failed to upload", failed, len(results))}
	}
	return nil
}

func uploadErrorText(err error) string {
	if os.IsNotExist(err) || os.IsPermission(err) {
		return err.Error()
	}
	return domain.UserMessage(err)
}
