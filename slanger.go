// Package slanger resolves the meaning of slang terms.
//
// A lookup goes through three tiers in order: a cache, a durable record
// store, and finally an AI provider. Answers from the provider are written
// back to the store and the cache. A "fallback" line (no usable answer) is
// returned to the caller but never remembered, so the next request retries.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/slanger"
//	    "github.com/ZaguanLabs/slanger/cache"
//	    "github.com/ZaguanLabs/slanger/provider"
//	    "github.com/ZaguanLabs/slanger/store"
//	)
//
//	func main() {
//	    p := provider.NewOpenAIProvider(provider.OpenAIConfig{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    })
//
//	    mem, _ := cache.NewInMemoryCache(cache.MemoryConfig{Size: 1024})
//
//	    svc := slanger.NewService(
//	        slanger.NewInterpreter(p),
//	        cache.NewBestEffort(mem),
//	        store.NewMemoryStore(),
//	    )
//
//	    line, err := svc.Resolve(context.Background(), "갓생", "")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(line) // 갓생: 완벽한 일상을 추구하는 생활 태도.
//	}
package slanger
