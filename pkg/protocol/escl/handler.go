package escl

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/protocol"
)

// Handler implements protocol.Handler for the eSCL (AirScan) HTTP+XML
// scan protocol.
type Handler struct {
	manufacturer string
	model        string
}

// New constructs a fresh eSCL handler, suitable for registration as a
// protocol.NewHandlerFunc.
func New() protocol.Handler {
	return &Handler{}
}

// Name implements protocol.Handler.
func (h *Handler) Name() string { return "eSCL" }

// CancelQuery implements protocol.Handler: DELETE the job resource.
func (h *Handler) CancelQuery(ctx *protocol.Context) httpactivity.Request {
	return httpactivity.Request{
		Method: http.MethodDelete,
		URL:    resolveLocation(ctx),
	}
}

// CleanupQuery implements protocol.Handler: DELETE the job resource once
// its images have been fully retrieved, same as cancel.
func (h *Handler) CleanupQuery(ctx *protocol.Context) httpactivity.Request {
	return httpactivity.Request{
		Method: http.MethodDelete,
		URL:    resolveLocation(ctx),
	}
}

// joinURL appends path to a base URI that is assumed to already end in a
// trailing slash (the endpoint prober normalizes this before probing).
func joinURL(base, path string) string {
	if strings.HasSuffix(base, "/") {
		return base + path
	}
	return base + "/" + path
}

// resolveLocation turns the scanner-assigned job location (which may be a
// full URL or a path relative to the endpoint's host) into an absolute URL
// usable for LOAD/CANCEL/CLEANUP requests.
func resolveLocation(ctx *protocol.Context) string {
	loc := ctx.Location
	if loc == "" {
		return ctx.BaseURI
	}
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return loc
	}

	base, err := url.Parse(ctx.BaseURI)
	if err != nil {
		return loc
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	return base.ResolveReference(ref).String()
}
