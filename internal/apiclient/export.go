package apiclient

import (
	"bytes"
	"context"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"

	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

var opExportPDF = operation{name: "export_pdf", failMsg: "Failed to export PDF", auth: true}

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// ExportPDF downloads the backend-rendered PDF of a resume, optionally using a profile's contact details.
func (c *Client) ExportPDF(ctx context.Context, resumeID, profileID string) (*types.PDFDocument, error) {
	if err := requireID("resume id", resumeID); err != nil {
		return nil, err
	}

	query := url.Values{}
	if profileID != "" {
		query.Set("profile_id", profileID)
	}

	resp, err := c.send(ctx, opExportPDF, request{
		method: http.MethodGet,
		path:   []string{"pdf", resumeID},
		query:  query,
		accept: "application/pdf",
	})
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.header.Get("Content-Type"))
	if mediaType != "application/pdf" || !bytes.HasPrefix(resp.body, pdfMagic) {
		return nil, errors.NewDecodeError(errors.ErrCodeMalformedResponse,
			opExportPDF.failMsg+": the server did not return a PDF", nil).
			WithContext("operation", opExportPDF.name).
			WithContext("content_type", resp.header.Get("Content-Type"))
	}

	return &types.PDFDocument{
		Filename: attachmentName(resp.header.Get("Content-Disposition"), "resume-"+resumeID+".pdf"),
		Data:     resp.body,
	}, nil
}

// attachmentName reads the filename of a Content-Disposition header, stripped of any directory.
func attachmentName(disposition, fallback string) string {
	if disposition == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return fallback
	}
	name := filepath.Base(params["filename"])
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}
