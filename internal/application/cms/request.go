package cms

import "context"

// RequestKind distinguishes the top-level request from embedded sub-requests.
type RequestKind int

const (
	MasterRequest RequestKind = iota
	SubRequest
)

type routeNameKey struct{}
type requestKindKey struct{}

// WithRouteName records the matched route name on ctx.
func WithRouteName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, routeNameKey{}, name)
}

// RouteNameFrom returns the matched route name, "" when unset.
func RouteNameFrom(ctx context.Context) string {
	name, _ := ctx.Value(routeNameKey{}).(string)
	return name
}

// WithRequestKind marks ctx as belonging to a master or sub request.
func WithRequestKind(ctx context.Context, kind RequestKind) context.Context {
	return context.WithValue(ctx, requestKindKey{}, kind)
}

// RequestKindFrom defaults to MasterRequest.
func RequestKindFrom(ctx context.Context) RequestKind {
	kind, ok := ctx.Value(requestKindKey{}).(RequestKind)
	if !ok {
		return MasterRequest
	}
	return kind
}
