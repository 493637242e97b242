// Package registry tracks which sheet renderers are currently showing each
// entity.
//
// A renderer registers itself every time it renders and deregisters when it
// closes. The host looks renderers up by entity id to re-render every open
// sheet after the entity changes:
//
//	doc.OnChange(func(c entity.Change) {
//		registry.Default.RefreshEntity(ctx, c.DocumentID)
//	})
//
// The process-wide Default instance mirrors the host's single table of open
// applications. Tests and the scenario harness construct their own Registry
// so runs stay isolated.
package registry
