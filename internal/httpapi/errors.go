package httpapi

import (
	"errors"
	"io/fs"

	"github.com/park285/fairyboard/internal/orchestrator"
	"github.com/park285/fairyboard/internal/rules"
	"github.com/park285/fairyboard/internal/store"
	"github.com/park285/fairyboard/internal/uci"
	"github.com/valyala/fasthttp"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{orchestrator.ErrIllegalMove, fasthttp.StatusUnprocessableEntity, "illegal_move"},
	{orchestrator.ErrNothingToUndo, fasthttp.StatusConflict, "nothing_to_undo"},
	{orchestrator.ErrNoEngine, fasthttp.StatusConflict, "no_engine"},
	{orchestrator.ErrNotPending, fasthttp.StatusConflict, "not_pending"},
	{orchestrator.ErrInvalidOption, fasthttp.StatusBadRequest, "invalid_option"},
	{orchestrator.ErrPathNotAllowed, fasthttp.StatusForbidden, "path_not_allowed"},
	{orchestrator.ErrStoreUnavailable, fasthttp.StatusServiceUnavailable, "store_unavailable"},
	{rules.ErrInvalidFEN, fasthttp.StatusBadRequest, "invalid_fen"},
	{rules.ErrUnknownVariant, fasthttp.StatusBadRequest, "unknown_variant"},
	{rules.ErrVariantConfigUnsupported, fasthttp.StatusNotImplemented, "unsupported"},
	{store.ErrNotFound, fasthttp.StatusNotFound, "not_found"},
	{fs.ErrNotExist, fasthttp.StatusNotFound, "not_found"},
	{uci.ErrProcessTerminated, fasthttp.StatusBadGateway, "engine_failed"},
	{orchestrator.ErrEngineFailed, fasthttp.StatusBadGateway, "engine_failed"},
}

func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return fasthttp.StatusInternalServerError, "internal"
}
