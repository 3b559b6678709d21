// Package state persists sparse settings layers for videocfg.
//
// A Store loads and saves the values of one layer, addressed by a Ref built
// from a layering.Source. Three stores are provided:
//   - MemoryStore, for tests and examples;
//   - FileStore, one TOML document per layer guarded by file locks;
//   - SQLiteStore, a single database file shared by every layer.
//
// Layers adapts any Store to videocfg.LayerStore so it can be handed to
// videocfg.WithStore. Resolver stacks persisted layers for inspection.
//
// Data flow:
//
//	Store -> Layers -> videocfg.Manager (LoadGlobal / ApplyTitle / SaveTitle)
//	Store -> Resolver -> videocfg.NewStack(...).Trace(key)
//
// Concurrency: Save is a compare-and-swap on Meta.ETag. Resolver.Mutate
// carries the loaded ETag into Save, and Layers retries a mutation a few
// times when another writer changed the layer in between.
package state
