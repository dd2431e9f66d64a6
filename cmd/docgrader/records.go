package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pavelanni/docgrader/internal/export"
	"github.com/pavelanni/docgrader/internal/form"
	"github.com/pavelanni/docgrader/internal/store"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored records as JSON, XLSX or PDF",
		RunE:  runExport,
	}
	f := cmd.Flags()
	addDBFlag(f)
	f.String("format", string(export.FormatJSON), "Output format (json, xlsx, pdf)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and manage stored records",
	}
	cmd.PersistentFlags().String("db", store.DefaultPath, "SQLite database path")
	addLogFlags(cmd.PersistentFlags())

	list := &cobra.Command{
		Use:   "list",
		Short: "List all records",
		RunE:  runRecordsList,
	}
	deleteLatest := &cobra.Command{
		Use:   "delete-latest",
		Short: "Delete the record with the highest id",
		RunE:  runRecordsDeleteLatest,
	}
	deleteOne := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one record by id",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecordsDelete,
	}
	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record",
		RunE:  runRecordsClear,
	}
	clearAll.Flags().Bool("yes", false, "Confirm deleting every record")
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Show record count, average marks and grade distribution",
		RunE:  runRecordsSummary,
	}

	cmd.AddCommand(list, deleteLatest, deleteOne, clearAll, summary)
	return cmd
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	v := viperForCmd(cmd)

	format, err := export.ParseFormat(v.GetString("format"))
	if err != nil {
		return err
	}
	recs, err := db.GetAll()
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	data, err := export.Render(format, recs)
	if err != nil {
		return err
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if format == export.FormatJSON {
		// Ensure trailing newline.
		_, _ = fmt.Fprintln(w)
	}
	slog.Info("exported records", "format", format, "count", len(recs), "output", outPath)
	return nil
}

func runRecordsList(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	recs, err := db.GetAll()
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTEACHER\tEMAIL\tSTUDENT\tGRADE\tMARKS\tREMARKS")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.TeacherName, r.TeacherEmail, r.StudentName, r.Grade, r.Marks, r.Remarks)
	}
	return tw.Flush()
}

func runRecordsDeleteLatest(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	if err := db.DeleteLatest(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted latest record.")
	return nil
}

func runRecordsDelete(cmd *cobra.Command, args []string) error {
	id, err := form.ParseRecordID(args[0])
	if err != nil {
		return err
	}
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	if err := db.DeleteByID(id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted record with ID %d.\n", id)
	return nil
}

func runRecordsClear(cmd *cobra.Command, _ []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.New("refusing to clear all records without --yes")
	}
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	if err := db.ClearAll(); err != nil {
		return err
	}
	slog.Info("cleared all records", "db", db.Path())
	fmt.Fprintln(cmd.OutOrStdout(), "All records deleted.")
	return nil
}

func runRecordsSummary(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	exp, err := db.ExportRecords()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Records: %d\n", exp.Count)
	fmt.Fprintf(out, "Average marks: %.1f\n", exp.Summary.AverageMarks)

	grades := make([]string, 0, len(exp.Summary.ByGrade))
	for g := range exp.Summary.ByGrade {
		grades = append(grades, g)
	}
	sort.Strings(grades)
	for _, g := range grades {
		fmt.Fprintf(out, "  %s: %d\n", g, exp.Summary.ByGrade[g])
	}
	return nil
}
