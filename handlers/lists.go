package handlers

import (
	"net/http"
	"strings"

	"furk/middleware"
	"furk/services/lazyload"

	"github.com/gin-gonic/gin"
)

// depsFunc extracts a list view's filter values from the request.
type depsFunc func(c *gin.Context) []string

func queryDeps(keys ...string) depsFunc {
	return func(c *gin.Context) []string {
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = strings.TrimSpace(c.Query(k))
		}
		return out
	}
}

func paramDeps(keys ...string) depsFunc {
	return func(c *gin.Context) []string {
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = c.Param(k)
		}
		return out
	}
}

// listPage serves a paginated list view backed by the session's loader for
// view. The first request (or a changed keyword or filter) loads page one;
// ?more=1 appends the next page; ?reset=1 starts over.
func listPage[T any](reg *lazyload.Registry, limit int, view string, fetch lazyload.FetchFunc[T], deps depsFunc, extra func(c *gin.Context) gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := tokenContext(c)
		loader := lazyload.Get(reg, middleware.SessionID(c), view, fetch, limit)

		var d []string
		if deps != nil {
			d = deps(c)
		}
		reset := loader.Sync(ctx, strings.TrimSpace(c.Query("keyword")), d...)
		switch {
		case c.Query("reset") == "1" && !reset:
			loader.Reset(ctx)
		case c.Query("more") == "1" && !reset:
			loader.LoadMore(ctx)
		}

		body := gin.H{"page": view, "list": loader.Snapshot()}
		if extra != nil {
			for k, v := range extra(c) {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
