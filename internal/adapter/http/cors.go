package httpadapter

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const corsAllowHeaders = "Content-Type,X-Forge-Key"

// corsRoutes lists the methods each bridge prefix serves, most specific first.
var corsRoutes = []struct {
	prefix  string
	methods string
}{
	{prefix: "/api/admin/", methods: "GET,POST,DELETE,OPTIONS"},
	{prefix: "/api/", methods: "GET,POST,OPTIONS"},
	{prefix: "/ops/", methods: "GET,OPTIONS"},
}

func corsMethods(path string) (string, bool) {
	for _, r := range corsRoutes {
		if strings.HasPrefix(path, r.prefix) {
			return r.methods, true
		}
	}
	return "", false
}

// applyCORSHeaders reports whether the path belongs to the bridge.
func applyCORSHeaders(ctx *app.RequestContext) bool {
	methods, ok := corsMethods(string(ctx.Path()))
	if !ok {
		return false
	}
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", methods)
	ctx.Response.Header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	ctx.Response.Header.Set("Access-Control-Max-Age", "600")
	return true
}

// corsMiddleware answers bridge preflight requests before the bridge key
// check runs. Paths outside the bridge get no CORS headers.
func corsMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if applyCORSHeaders(ctx) && string(ctx.Method()) == consts.MethodOptions {
			ctx.AbortWithStatus(consts.StatusNoContent)
			return
		}
		ctx.Next(c)
	}
}
