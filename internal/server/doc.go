// Package server provides HTTP routing and middleware for the local web front.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method-qualified [http.ServeMux] patterns, so handlers can read
// path wildcards with [http.Request.PathValue].
//
// # Route Guard
//
// [Guard] applies routes.Decide to every request using the presence of the session cookie. Navigations
// (GET/HEAD) are redirected; writes to protected paths without a cookie are answered with 401.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
