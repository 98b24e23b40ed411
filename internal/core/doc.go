// Package core provides the business logic for map file ingestion.
//
// This package is the heart of the loader, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around a handful of collaborating pieces:
//
//   - Classifier: [Classify] inspects parsed content and returns a [Format]
//     using structural heuristics only.
//   - Loader: [Loader.Parse] picks whole-file or streaming ingestion based on
//     file size, and [Loader.ReadFile] turns a file into a [LoadedFile].
//   - Chunked reading: [ChunkReader] yields bounded slices of a file for the
//     streaming path.
//   - Reassembly: [Reassemble] folds streamed batches back into one document.
//   - Payload: [FilesToDataPayload] partitions a [FileCache] into map bundles
//     and one aggregated datasets item.
//
// # Collaborators
//
// Decoding and per-format processing are injected rather than registered
// globally:
//
//	loader, err := core.NewLoader(core.LoaderOptions{
//	    Parser:     parse.New(),
//	    Processors: process.Defaults(),
//	    Logger:     slog.Default(),
//	})
//
// # Ingestion Strategy
//
// Files of at least [DefaultStreamThreshold] bytes are streamed:
//
//  1. A [ChunkReader] slices the file into [DefaultChunkSize] chunks
//  2. The parser turns the chunk sequence into a [BatchIterator]
//  3. [Reassemble] folds batches and the terminal root object into content
//
// Smaller files are read whole as UTF-8 text and parsed in one call.
//
// # Error Handling
//
// Read failures wrap [ErrUnreadableFile] and decode failures wrap
// [ErrUnparseableContent]. Content that parses but matches no format is not
// an error: the loader logs a warning and returns the cache unchanged.
// Technical errors are mapped to user-facing messages using [MapError].
package core
