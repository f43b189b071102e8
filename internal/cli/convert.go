package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/internal/events"
	"github.com/narwhalmedia/docconvert/pkg/errors"
	"github.com/narwhalmedia/docconvert/pkg/logger"
)

type convertResult struct {
	File         string `json:"file" yaml:"file"`
	InputFormat  string `json:"input_format" yaml:"input_format"`
	OutputFormat string `json:"output_format" yaml:"output_format"`
	Transport    string `json:"transport" yaml:"transport"`
	URL          string `json:"url" yaml:"url"`
	SavedTo      string `json:"saved_to,omitempty" yaml:"saved_to,omitempty"`
	Duration     string `json:"duration" yaml:"duration"`
}

func newConvertCmd(r *root) *cobra.Command {
	var from, to, saveDir string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a local file and print the result URL",
		Example: `  docconvert convert report.docx --from docx --to pdf
  docconvert convert notes.md --from md --to html --transport filebin -o json
  docconvert convert slides.pptx --from pptx --to pdf --save ./out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, r, args[0], from, to, saveDir)
		},
	}

	cmd.Flags().StringVarP(&from, "from", "f", "", "Input format, passed to the service verbatim")
	cmd.Flags().StringVar(&to, "to", "", "Output format, passed to the service verbatim")
	cmd.Flags().StringVar(&saveDir, "save", "", "Download the converted file into this directory")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runConvert(cmd *cobra.Command, r *root, path, from, to, saveDir string) error {
	transport := r.app.Converter.Uploader()
	ctx := logger.WithFields(cmd.Context(),
		zap.String("file", path),
		zap.String("transport", transport),
	)
	log := logger.FromContext(ctx).Named("cli")

	start := time.Now()
	url, err := r.app.Converter.Convert(ctx, path, from, to)
	took := time.Since(start)

	if err != nil {
		events.Emit(ctx, r.app.Publisher, events.NewFailed(path, from, to, transport, err,
			string(errors.TypeOf(err)), string(errors.StageOf(err)), took), log)
		return fmt.Errorf("conversion failed: %w", err)
	}

	events.Emit(ctx, r.app.Publisher, events.NewCompleted(path, from, to, transport, url, took), log)
	log.Debug("conversion finished", zap.String("url", url), zap.Duration("took", took))

	result := convertResult{
		File:         path,
		InputFormat:  from,
		OutputFormat: to,
		Transport:    transport,
		URL:          url,
		Duration:     took.Round(time.Millisecond).String(),
	}

	if saveDir != "" {
		if r.app.Downloader == nil {
			return fmt.Errorf("saving results is not configured")
		}
		saved, err := r.app.Downloader.Save(ctx, url, saveDir)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", url, err)
		}
		result.SavedTo = saved
	}

	return render(cmd.OutOrStdout(), r.output, result, func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, url); err != nil {
			return err
		}
		if result.SavedTo != "" {
			_, err := fmt.Fprintf(w, "saved to %s\n", result.SavedTo)
			return err
		}
		return nil
	})
}
