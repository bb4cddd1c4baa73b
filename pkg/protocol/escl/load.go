package escl

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/protocol"
	"github.com/escl-core/netscan/pkg/status"
)

// LoadQuery implements protocol.Handler: fetch the next page image from
// the job created by SCAN.
func (h *Handler) LoadQuery(ctx *protocol.Context) httpactivity.Request {
	return httpactivity.Request{
		Method: http.MethodGet,
		URL:    strings.TrimSuffix(resolveLocation(ctx), "/") + "/NextDocument",
	}
}

// LoadDecode implements protocol.Handler. A page arrives as 200 with an
// image body; 404 means the job has no more documents, at which point the
// job state machine moves on to a status check before cleanup (the
// SCAN->LOAD*->CHECK/CLEANUP sequence from spec.md §4.6).
func (h *Handler) LoadDecode(ctx *protocol.Context, resp *httpactivity.Response) protocol.Result {
	switch resp.StatusCode {
	case http.StatusOK:
		ctx.FailedAttempt = 0
		return protocol.Result{
			Next:   protocol.OpLoad,
			Status: status.Good,
			Data:   protocol.ResultData{Image: resp.Body},
		}

	case http.StatusNotFound:
		return protocol.Result{Next: protocol.OpCheck, Status: status.Good}

	case http.StatusServiceUnavailable:
		ctx.FailedAttempt++
		if ctx.FailedAttempt >= retryAttempts {
			return protocol.Result{
				Next:   protocol.OpFinish,
				Status: status.IOError,
				Err:    fmt.Errorf("escl: NextDocument: scanner still busy after %d attempts", ctx.FailedAttempt),
			}
		}
		return protocol.Result{Next: protocol.OpLoad, Delay: retryDelay, Status: status.Good}

	default:
		return protocol.Result{
			Next:   protocol.OpFinish,
			Status: status.IOError,
			Err:    fmt.Errorf("escl: NextDocument: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(resp.Body)),
		}
	}
}
