package core

import (
	"context"
	"runtime"
	"sync"

	"github.com/Skryldev/decodekit/source"
)

// BatchImages decodes sources concurrently on a fixed pool of workers.
// Decoders are not safe for concurrent use, so each worker builds its own
// with newDecoder.  Results are returned in source order.  Sources not yet
// started when ctx is cancelled get a result carrying ctx.Err().
func BatchImages(ctx context.Context, workers int, newDecoder func() (*ImageDecoder, error), sources []source.Source) ([]*ImageResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(sources))

	decoders := make([]*ImageDecoder, workers)
	for i := range decoders {
		d, err := newDecoder()
		if err != nil {
			return nil, err
		}
		decoders[i] = d
	}

	results := make([]*ImageResult, len(sources))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for _, d := range decoders {
		wg.Add(1)
		go func(d *ImageDecoder) {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = &ImageResult{Metadata: []MetadataEntry{}, Err: err}
					continue
				}
				results[i] = d.Decode(sources[i])
			}
		}(d)
	}
	for i := range sources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results, nil
}
