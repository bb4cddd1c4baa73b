package escl

import (
	"encoding/xml"
	"net/http"

	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/protocol"
	"github.com/escl-core/netscan/pkg/status"
)

// StatusQuery implements protocol.Handler: poll ScannerStatus, used as the
// CHECK step after a job's documents are exhausted, before CLEANUP.
func (h *Handler) StatusQuery(ctx *protocol.Context) httpactivity.Request {
	return httpactivity.Request{
		Method: http.MethodGet,
		URL:    joinURL(ctx.BaseURI, "ScannerStatus"),
	}
}

// StatusDecode implements protocol.Handler. Regardless of the reported
// scanner state, a status check always concludes with CLEANUP; a reported
// error state degrades the job's outcome to IO_ERROR without otherwise
// affecting sequencing.
func (h *Handler) StatusDecode(ctx *protocol.Context, resp *httpactivity.Response) protocol.Result {
	if resp.StatusCode != http.StatusOK {
		return protocol.Result{Next: protocol.OpCleanup, Status: status.Good}
	}

	var doc statusDoc
	if err := xml.Unmarshal(resp.Body, &doc); err != nil {
		return protocol.Result{Next: protocol.OpCleanup, Status: status.Good}
	}

	for _, job := range doc.Jobs {
		if job.JobState == "Aborted" {
			return protocol.Result{Next: protocol.OpCleanup, Status: status.IOError}
		}
	}

	return protocol.Result{Next: protocol.OpCleanup, Status: status.Good}
}
