// Package app is the composition root of the catalog client.
//
// New builds every engine service once from a config.Config and injects the
// collaborators each one needs: the key-value store and its async writer,
// preferences, the REST client, the connectivity monitor, the catalog and
// review fetch coordinators, the search filter pipeline and the mutation
// engine. There are no package-level singletons.
//
// # Threading
//
// All engine state belongs to one loop goroutine. The exported Session
// methods are safe from any goroutine: they post onto the loop and the view
// is rebuilt after each change. Front ends read View or Subscribe to
// updates; they never touch services directly.
//
// # Lifecycle
//
//	s, err := app.New(cfg, app.Deps{Logger: log})
//	if err != nil {
//		return err
//	}
//	return s.Run(ctx, tui.New(s))
//
// Start issues the initial catalog load with the stored sort preference,
// loads the voted set and notifications, and syncs the wishlist mirror. When
// connectivity returns, failed list loads are retried once; rolled-back
// mutations wait for RetryFailed.
package app
