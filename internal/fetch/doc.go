// Package fetch coordinates paged list requests.
//
// A Coordinator owns one accumulated list (the catalog, or the reviews of a
// product). Each request is tagged with a generation; a completion whose
// generation is no longer current is discarded, so only the latest replace
// request can change the list. Replace requests cancel the previous request's
// context. Appends are accepted only for the active fingerprint at the page
// after the cursor.
//
// Completions are delivered through the post function given to New, which in
// the application is the engine loop's Post. All coordinator methods must run
// on that loop.
package fetch
