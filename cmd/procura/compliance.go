package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/procura/internal/procurement"
)

var (
	complianceDocID   string
	complianceDocType int
)

var complianceCmd = &cobra.Command{
	Use:   "compliance [file_path] <comma-separated products>",
	Short: "Check products against a compliance document",
	Long: `Upload a compliance document, wait until the service has processed it,
then check each product against it.

Document types: 0 general specification, 1 regulatory standard,
2 vendor certificate, 3 internal policy.

Pass --document-id to reuse a document uploaded by an earlier run
instead of uploading again; the products are then the only argument.`,
	Args: func(cmd *cobra.Command, args []string) error {
		want := 2
		if complianceDocID != "" {
			want = 1
		}
		if len(args) != want {
			return fmt.Errorf("accepts %d arg(s), received %d", want, len(args))
		}
		return nil
	},
	RunE: runCompliance,
}

func init() {
	complianceCmd.Flags().StringVar(&complianceDocID, "document-id", "", "Handle of a previously uploaded document")
	complianceCmd.Flags().IntVar(&complianceDocType, "doc-type", 0, "Document type (0-3)")
}

func runCompliance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	products := splitProducts(args[len(args)-1])
	if len(products) == 0 {
		return fmt.Errorf("no products given")
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var fileID string
	if complianceDocID != "" {
		doc, err := a.manager.ResumeComplianceDoc(ctx, complianceDocID)
		if err != nil {
			if isNotReady(err) {
				return fmt.Errorf("%w (upload the document again without --document-id)", err)
			}
			return err
		}
		fileID = doc.FileID
	} else {
		fileID, err = a.manager.UploadComplianceDoc(ctx, args[0], procurement.DocumentType(complianceDocType))
		if err != nil {
			return err
		}
		progress("compliance", fmt.Sprintf("reuse this document with --document-id %s", fileID))
	}

	results, err := a.manager.CheckComplianceForProducts(ctx, products)
	if err != nil {
		return err
	}

	doc := a.manager.ActiveDocument()
	return a.emit(os.Stdout, "Compliance check: "+strings.Join(products, ", "), &procurement.ComplianceReport{
		RunID:        a.manager.RunID(),
		FileID:       fileID,
		DocumentType: doc.Type.String(),
		GeneratedAt:  time.Now().UTC(),
		Results:      results,
	})
}

// splitProducts splits a comma-separated list, dropping blank entries.
func splitProducts(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
