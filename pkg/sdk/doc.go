// Package kbsearch embeds the knowledge-base retrieval engine in a Go program.
//
// The engine reads a read-only index (Qdrant or Redis with the query engine)
// holding one entry per passage with title, summary and chunk vectors.
// A query is embedded once, ranked by the configured strategy and returned
// as normalized records ready to ground an answer generator.
//
//	client, _ := kbsearch.New(ctx,
//	    kbsearch.WithQdrant("localhost:6334", ""),
//	    kbsearch.WithEmbedder(kbsearch.NewOpenAIEmbedder(baseURL, apiKey, "text-embedding-3-small", 0)),
//	    kbsearch.WithStrategy(kbsearch.StrategyCascade),
//	)
//	defer client.Close()
//
//	records, _ := client.Retrieve(ctx, "how do I renew a student visa")
//	prompt, _ := client.Context(ctx, "how do I renew a student visa")
package kbsearch
