package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/quizforge/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a course document",
		Long:  "Extract, chunk and store a document as course fragments, queueing embedding jobs",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().StringP("course", "c", "", "Course ID (required)")
	cmd.Flags().StringSlice("tag", nil, "Tag applied to every fragment (repeatable)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("course")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	courseID, _ := cmd.Flags().GetString("course")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	outputFormat, _ := cmd.Flags().GetString("output")

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.ingestion().IngestFile(ctx, service.IngestInput{
		CourseID: courseID,
		Filename: filepath.Base(path),
		MimeType: mimeTypeFor(path),
		Data:     data,
		Tags:     tags,
	})
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(map[string]any{
			"id":          result.File.ID,
			"course_id":   result.File.CourseID,
			"filename":    result.File.Filename,
			"storage_key": result.File.StorageKey,
			"fragments":   result.File.Fragments,
			"degraded":    result.File.Degraded,
		}, "", "  ")
		fmt.Fprintln(out, string(jsonBytes))
		return nil
	}

	fmt.Fprintf(out, "Ingested %s into course %s\n", result.File.Filename, courseID)
	fmt.Fprintf(out, "File ID: %s\n", result.File.ID)
	fmt.Fprintf(out, "Fragments: %d (embedding jobs queued)\n", result.File.Fragments)
	if result.File.Degraded {
		fmt.Fprintln(out, "Warning: text could not be extracted, a placeholder was stored")
	}
	return nil
}

func ReembedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Queue re-embedding of a course",
		Long:  "Queue an embedding job for every fragment of a course, e.g. after changing the embedding model",
		Args:  cobra.NoArgs,
		RunE:  runReembed,
	}

	cmd.Flags().StringP("course", "c", "", "Course ID (required)")
	cmd.MarkFlagRequired("course")

	return cmd
}

func runReembed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	courseID, _ := cmd.Flags().GetString("course")

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	queued, err := a.ingestion().Reembed(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to queue re-embedding: %w", err)
	}

	a.log.Info("re-embedding queued", zap.String("course_id", courseID), zap.Int("jobs", queued))
	fmt.Fprintf(cmd.OutOrStdout(), "Queued %d embedding jobs for course %s\n", queued, courseID)
	return nil
}

func mimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
