package receipt

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Report records what happened to one emitted receipt. Failures never fail
// the order; they are only reported.
type Report struct {
	Printed     bool     `json:"printed"`
	DocumentURI string   `json:"document_uri,omitempty"`
	Shared      bool     `json:"shared"`
	Errors      []string `json:"errors,omitempty"`

	errs []error
}

// Err joins every failure of the emission, or returns nil.
func (r Report) Err() error { return errors.Join(r.errs...) }

func (r *Report) fail(err error) {
	r.errs = append(r.errs, err)
	r.Errors = append(r.Errors, err.Error())
}

// Emitter prints and shares receipts. Either capability may be nil.
type Emitter struct {
	printer Printer
	docs    Documents
	company string
	color   string
}

func NewEmitter(printer Printer, docs Documents, company, color string) *Emitter {
	return &Emitter{printer: printer, docs: docs, company: company, color: color}
}

// Emit delegates to the printer and then the documents capability, best effort.
func (e *Emitter) Emit(ctx context.Context, r Receipt) Report {
	var rep Report

	if e.printer != nil {
		if err := e.printer.PrintRaw(ctx, Lines(r)); err != nil {
			rep.fail(fmt.Errorf("print: %w", err))
		} else {
			rep.Printed = true
		}
	}

	if e.docs != nil {
		e.emitDocument(ctx, r, &rep)
	}

	if err := rep.Err(); err != nil {
		log.Printf("ERROR: emit receipt %s: %v", r.OrderID, err)
	}
	return rep
}

func (e *Emitter) emitDocument(ctx context.Context, r Receipt, rep *Report) {
	html, err := RenderHTML(r, e.company, e.color)
	if err != nil {
		rep.fail(err)
		return
	}
	uri, err := e.docs.RenderToFile(ctx, html)
	if err != nil {
		rep.fail(fmt.Errorf("render document: %w", err))
		return
	}
	rep.DocumentURI = uri

	if err := e.docs.Share(ctx, uri); err != nil {
		rep.fail(fmt.Errorf("share document: %w", err))
		return
	}
	rep.Shared = true
}
