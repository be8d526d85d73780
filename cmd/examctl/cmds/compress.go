package cmds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"examcompress/internal/archive"
	"examcompress/internal/compress"
	fileutil "examcompress/internal/file"
	"examcompress/internal/upload"
	"examcompress/internal/workflow"
)

const downloadWait = 2 * time.Minute

var (
	compressExam        string
	compressDownloadDir string
	compressSkipDL      bool
	compressZip         string
)

var compressCmd = &cobra.Command{
	Use:   "compress --exam ID FILE...",
	Short: "Validate files for an exam, compress them and download the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

func runCompress(ctx context.Context, out io.Writer, paths []string) error {
	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	client, err := compress.NewClient(compress.Options{BaseURL: cfg.ServiceURL, Timeout: cfg.SubmitTimeout})
	if err != nil {
		return err
	}

	dir := compressDownloadDir
	if dir == "" {
		dir = cfg.DownloadDir
	}
	var saver *compress.Saver
	opts := workflow.Options{Catalog: catalog, Submitter: client}
	if !compressSkipDL {
		if err := fileutil.EnsureDir(dir); err != nil {
			return err
		}
		saver = compress.NewSaver(dir, nil)
		opts.Navigator = saver
	}
	ctrl := workflow.New(opts)

	if err := ctrl.SelectExam(compressExam); err != nil {
		if errors.Is(err, workflow.ErrUnknownExam) {
			return fmt.Errorf("unknown exam %q, expected one of: %s", compressExam, strings.Join(catalog.IDs(), ", "))
		}
		return err
	}

	candidates := make([]upload.CandidateFile, 0, len(paths))
	for _, p := range paths {
		f, err := upload.FromPath(p)
		if err != nil {
			return err
		}
		candidates = append(candidates, f)
	}

	_, rejected, err := ctrl.AddFiles(candidates)
	if err != nil {
		return err
	}
	if n := ctrl.State().Notice; n != nil {
		fmt.Fprintln(out, n.Text)
		for _, f := range rejected {
			fmt.Fprintf(out, "  skipped %s\n", f.Name)
		}
		ctrl.DismissNotice()
	}

	if err := ctrl.Submit(ctx); err != nil {
		st := ctrl.State()
		switch {
		case st.Notice != nil:
			fmt.Fprintln(out, st.Notice.Text)
		case st.Error != "":
			fmt.Fprintln(out, st.Error)
		}
		return err
	}

	results := ctrl.State().Results
	if err := printResults(out, results); err != nil {
		return err
	}
	if compressZip != "" {
		bundled, err := archive.BuildFile(ctx, compressZip, nil, archive.Entries(results, ctrl.DownloadURL))
		if err != nil {
			return err
		}
		for _, r := range bundled {
			if r.Err != "" {
				fmt.Fprintf(out, "bundle: %s left out: %s\n", r.Name, r.Err)
			}
		}
		fmt.Fprintf(out, "bundle written to %s\n", compressZip)
	}
	if saver == nil {
		return nil
	}

	for _, o := range results {
		ctrl.Download(o.ID)
	}
	waitCtx, cancel := context.WithTimeout(ctx, downloadWait)
	defer cancel()
	if !saver.Wait(waitCtx) {
		fmt.Fprintln(out, "downloads still running, giving up")
	}
	for _, p := range saver.Saved() {
		fmt.Fprintf(out, "saved %s\n", p)
	}
	for u, err := range saver.Failed() {
		fmt.Fprintf(out, "download %s failed: %v\n", u, err)
	}
	return nil
}

func printResults(out io.Writer, results compress.ResultSet) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tTYPE\tORIGINAL\tCOMPRESSED\tSAVED")
	for _, o := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\n",
			o.OriginalName, o.Kind(), upload.FormatSize(o.OriginalSize), upload.FormatSize(o.CompressedSize), o.SavedPercent())
	}
	original, compressed := results.TotalSaved()
	fmt.Fprintf(tw, "TOTAL\t\t%s\t%s\t\n", upload.FormatSize(original), upload.FormatSize(compressed))
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(compressCmd)

	compressCmd.Flags().StringVarP(&compressExam, "exam", "e", "", "Exam ID (required)")
	compressCmd.Flags().StringVarP(&compressDownloadDir, "download-dir", "o", "", "Directory for compressed files (defaults to config download_dir)")
	compressCmd.Flags().BoolVar(&compressSkipDL, "skip-download", false, "Only report sizes")
	compressCmd.Flags().StringVar(&compressZip, "zip", "", "Also write every compressed file into this zip")

	if err := compressCmd.MarkFlagRequired("exam"); err != nil {
		panic(err)
	}
}
