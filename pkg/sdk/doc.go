// Package semsearch embeds the SciELO corpus search engine in a Go program.
//
// The client loads the documents and their precomputed embedding matrices once,
// then answers free-text queries by exact cosine ranking. Query vectors come from
// the Embedder registered for each space; an optional Redis instance caches them.
//
//	client, err := semsearch.Open(ctx,
//	    semsearch.WithDocuments("data/corpus.csv"),
//	    semsearch.WithSpace(semsearch.Deep, "data/deep.npy", deepEmbedder),
//	    semsearch.WithSpace(semsearch.Fast, "data/fast.npy", fastEmbedder),
//	    semsearch.WithRedis("localhost:6379", ""),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	res, _ := client.Search(ctx, semsearch.Deep, "migración rural", 3)
//	for _, r := range res.Results {
//	    fmt.Println(r.Rank, r.Title, r.Score)
//	}
package semsearch
