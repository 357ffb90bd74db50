// Package preview manages short-lived preview applications derived from a
// development application.
//
// A preview application is named after its template with the environment
// segment replaced by a sanitized branch identifier:
//
//	acme-dev-billing  ->  acme-myfeat-billing
//
// Ensure creates the application from the template's configuration on first
// use and redeploys the new image tag afterwards. Destroy removes one preview;
// Clean removes every preview of the template, continuing past individual
// failures and pacing deletions with a token bucket.
//
// All operations are refused outside the development environment.
package preview
