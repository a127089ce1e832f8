package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/dshills/aecwatch/internal/storage"
	"github.com/dshills/aecwatch/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Show the stored record for a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var groupCmd = &cobra.Command{
	Use:   "group <project> <discipline> <sheet>",
	Short: "List every revision of one sheet",
	Long: `List every stored revision of one sheet, newest ordering first, marking the
current one. Use "" for the project of files classified without one.`,
	Args: cobra.ExactArgs(3),
	RunE: runGroup,
}

var currentCmd = &cobra.Command{
	Use:   "current <project>",
	Short: "List the current revision of every sheet in a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runCurrent,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List every project number seen",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Count stored records by processing status",
	Long: `Count stored records by processing status and list the most recent
batches. With --project, also summarize that project's files by status,
discipline and extension.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var (
	statusProject string
	statusBatches int
)

func init() {
	rootCmd.AddCommand(showCmd, groupCmd, currentCmd, projectsCmd, statusCmd)
	statusCmd.Flags().StringVarP(&statusProject, "project", "p", "", "summarize one project")
	statusCmd.Flags().IntVar(&statusBatches, "batches", 5, "number of recent batches to list (0 for none)")
}

// recordOutput is the JSON shape of a stored record
type recordOutput struct {
	Path           string    `json:"path"`
	Digest         string    `json:"digest"`
	SizeBytes      int64     `json:"size_bytes"`
	ModTime        time.Time `json:"modified_at"`
	LastProcessed  time.Time `json:"last_processed_at"`
	Project        string    `json:"project,omitempty"`
	Phase          string    `json:"phase,omitempty"`
	Discipline     string    `json:"discipline,omitempty"`
	DocType        string    `json:"document_type,omitempty"`
	Sheet          string    `json:"sheet,omitempty"`
	Revision       string    `json:"revision,omitempty"`
	DateIssued     string    `json:"date_issued,omitempty"`
	Confidence     float64   `json:"confidence"`
	IsStandard     bool      `json:"is_standard"`
	NamingFormat   string    `json:"naming_format"`
	Status         string    `json:"status"`
	IsCurrent      bool      `json:"is_current"`
	Error          *string   `json:"error,omitempty"`
	PayloadWarning *string   `json:"payload_warning,omitempty"`
}

func toOutput(r *types.FileRecord) recordOutput {
	return recordOutput{
		Path:           r.Path,
		Digest:         r.Digest,
		SizeBytes:      r.SizeBytes,
		ModTime:        r.ModTime,
		LastProcessed:  r.LastProcessedAt,
		Project:        r.Project,
		Phase:          r.PhaseCode,
		Discipline:     r.DisciplineCode,
		DocType:        r.DocTypeCode,
		Sheet:          r.Sheet,
		Revision:       r.Revision,
		DateIssued:     r.DateIssued,
		Confidence:     r.Confidence,
		IsStandard:     r.IsStandard,
		NamingFormat:   string(r.NamingFormat),
		Status:         string(r.Status),
		IsCurrent:      r.IsCurrent,
		Error:          r.Error,
		PayloadWarning: r.PayloadWarning,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	record, err := a.store.GetByPath(cmd.Context(), path)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no record for %s", path)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, toOutput(record))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fields := [][2]string{
		{"Path", record.Path},
		{"Status", string(record.Status)},
		{"Current", fmt.Sprint(record.IsCurrent)},
		{"Format", fmt.Sprintf("%s (confidence %.2f)", record.NamingFormat, record.Confidence)},
		{"Project", record.Project},
		{"Phase", joinCodeName(record.PhaseCode, record.PhaseName)},
		{"Discipline", joinCodeName(record.DisciplineCode, record.DisciplineName)},
		{"Document type", joinCodeName(record.DocTypeCode, record.DocTypeName)},
		{"Sheet", record.Sheet},
		{"Revision", record.Revision},
		{"Issued", record.DateIssued},
		{"Size", fmt.Sprintf("%d bytes", record.SizeBytes)},
		{"Digest", record.Digest},
		{"Modified", record.ModTime.Format(time.RFC3339)},
		{"Processed", record.LastProcessedAt.Format(time.RFC3339)},
	}
	if record.Error != nil {
		fields = append(fields, [2]string{"Error", *record.Error})
	}
	if record.PayloadWarning != nil {
		fields = append(fields, [2]string{"Warning", *record.PayloadWarning})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%s:\t%s\n", f[0], f[1])
	}
	return w.Flush()
}

func runGroup(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	key := types.GroupKey{Project: args[0], Discipline: args[1], Sheet: args[2]}
	records, err := a.store.GetByGroup(cmd.Context(), key)
	if err != nil {
		return err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return types.CompareRevisions(records[i].ParsedRevision(), records[j].ParsedRevision()) > 0
	})

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), lo.Map(records, func(r *types.FileRecord, _ int) recordOutput { return toOutput(r) }))
	}
	if len(records) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No revisions for %s\n", key)
		return nil
	}
	return printRecords(cmd.OutOrStdout(), records)
}

func runCurrent(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	records, err := a.store.GetAllCurrentRevisions(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), lo.Map(records, func(r *types.FileRecord, _ int) recordOutput { return toOutput(r) }))
	}
	if len(records) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No current revisions for project %s\n", args[0])
		return nil
	}
	return printRecords(cmd.OutOrStdout(), records)
}

func runProjects(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	projects, err := a.store.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), lo.Ternary(projects == nil, []string{}, projects))
	}
	for _, p := range projects {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// statusOutput is the JSON shape of the status command
type statusOutput struct {
	ByStatus map[string]int `json:"by_status"`
	Batches  []batchOutput  `json:"recent_batches"`
	Project  *projectOutput `json:"project,omitempty"`
}

type batchOutput struct {
	ID          string    `json:"id"`
	Trigger     string    `json:"trigger"`
	Root        string    `json:"root"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Files       int       `json:"files"`
	Completed   int       `json:"completed"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Retried     int       `json:"retried"`
	GroupErrors int       `json:"group_errors"`
	Errors      []string  `json:"errors,omitempty"`
}

type projectOutput struct {
	Project        string         `json:"project"`
	TotalFiles     int            `json:"total_files"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	CurrentSheets  int            `json:"current_sheets"`
	ByStatus       map[string]int `json:"by_status"`
	ByDiscipline   map[string]int `json:"by_discipline"`
	ByExtension    map[string]int `json:"by_extension"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusBatches < 0 {
		return fmt.Errorf("--batches must not be negative")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	ctx := cmd.Context()

	counts, err := a.store.CountByStatus(ctx)
	if err != nil {
		return err
	}
	out := statusOutput{
		ByStatus: lo.MapKeys(counts, func(_ int, s types.Status) string { return string(s) }),
		Batches:  []batchOutput{},
	}

	if statusBatches > 0 {
		batches, err := a.store.ListBatches(ctx, statusBatches)
		if err != nil {
			return err
		}
		out.Batches = lo.Map(batches, func(b *types.BatchRecord, _ int) batchOutput {
			return batchOutput{
				ID: b.ID, Trigger: string(b.Trigger), Root: b.Root, StartedAt: b.StartedAt,
				DurationMS: b.Duration.Milliseconds(), Files: b.Files, Completed: b.Completed,
				Skipped: b.Skipped, Failed: b.Failed, Retried: b.Retried,
				GroupErrors: b.GroupErrors, Errors: b.Errors,
			}
		})
	}

	if statusProject != "" {
		stats, err := a.store.ProjectStats(ctx, statusProject)
		if err != nil {
			return err
		}
		out.Project = &projectOutput{
			Project:        stats.Project,
			TotalFiles:     stats.TotalFiles,
			TotalSizeBytes: stats.TotalSizeBytes,
			CurrentSheets:  stats.CurrentSheets,
			ByStatus:       lo.MapKeys(stats.ByStatus, func(_ int, s types.Status) string { return string(s) }),
			ByDiscipline:   stats.ByDiscipline,
			ByExtension:    stats.ByExtension,
		}
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return printStatus(cmd.OutOrStdout(), counts, out)
}

var statusOrder = []types.Status{
	types.StatusDiscovered, types.StatusHashed, types.StatusClassified,
	types.StatusCompleted, types.StatusFailed,
}

func printStatus(out io.Writer, counts map[types.Status]int, st statusOutput) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range statusOrder {
		fmt.Fprintf(w, "%s:\t%d\n", s, counts[s])
	}

	if len(st.Batches) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "STARTED\tTRIGGER\tFILES\tCOMPLETED\tSKIPPED\tFAILED\tDURATION\tBATCH")
		for _, b := range st.Batches {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%dms\t%s\n",
				b.StartedAt.Format(time.RFC3339), b.Trigger, b.Files, b.Completed, b.Skipped, b.Failed, b.DurationMS, b.ID)
		}
	}

	if p := st.Project; p != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Project %s:\t%d files, %d bytes, %d current sheets\n", p.Project, p.TotalFiles, p.TotalSizeBytes, p.CurrentSheets)
		printCounts(w, "discipline", p.ByDiscipline)
		printCounts(w, "extension", p.ByExtension)
	}
	return w.Flush()
}

// printCounts writes one sorted line per key, naming the empty key "none"
func printCounts(w io.Writer, label string, counts map[string]int) {
	keys := lo.Keys(counts)
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s %s:\t%d\n", label, lo.Ternary(k == "", "none", k), counts[k])
	}
}

// printRecords writes one line per record, flagging the current revision
func printRecords(out io.Writer, records []*types.FileRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CURRENT\tGROUP\tREVISION\tISSUED\tSTATUS\tPATH")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			lo.Ternary(r.IsCurrent, "*", ""), r.Group(), r.Revision, r.DateIssued, r.Status, r.Path)
	}
	return w.Flush()
}

func joinCodeName(code, name string) string {
	switch {
	case code == "":
		return ""
	case name == "":
		return code
	default:
		return code + " " + name
	}
}
