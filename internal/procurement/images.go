package procurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/FranksOps/procura/internal/extract"
	"github.com/FranksOps/procura/internal/metrics"
	"github.com/FranksOps/procura/internal/storage"
)

// FindProductImages asks for images of productName on website. No images is
// an empty result, not an error; only a failed call is an ExtractionError.
// Bad input is reported as ErrEmptyQuery or ErrInvalidWebsite before any call.
func (m *Manager) FindProductImages(ctx context.Context, productName, website string) ([]ImageRef, error) {
	start := m.now()
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return nil, fmt.Errorf("find images: %w", ErrEmptyQuery)
	}
	site, err := ParseWebsite(website)
	if err != nil {
		return nil, fmt.Errorf("find images: %w", err)
	}

	m.report("images", fmt.Sprintf("looking for %s on %s", productName, site))
	out, err := m.extractWithTimeout(ctx, extract.Request{
		Operation:   extract.OpImages,
		Instruction: imagesInstruction,
		Input:       fmt.Sprintf("Product: %s\nWebsite: %s", productName, site.URL()),
		WebSearch:   true,
		JSON:        true,
	})
	metrics.RecordTask("images", err)
	if err != nil {
		err = &ExtractionError{Operation: extract.OpImages, Target: site.Host, Err: err}
		m.record(ctx, storage.KindImages, productName, start, nil, err)
		return nil, err
	}

	images := parseImages(out, site.URL())
	m.record(ctx, storage.KindImages, productName, start, ImageResult{
		ProductName: productName,
		Website:     site.String(),
		Images:      images,
	}, nil)
	return images, nil
}

// parseImages reads image URLs from the answer in order of preference:
// a JSON list, HTML img tags, markdown images, then bare image URLs.
// Relative URLs resolve against base; duplicates are dropped.
func parseImages(out, base string) []ImageRef {
	var candidates []string
	if raw, ok := findJSON(out); ok {
		if entries, ok := listField(raw, "images", "image_urls", "urls"); ok {
			for _, e := range entries {
				if s, ok := stringish(e, "url", "src"); ok {
					candidates = append(candidates, s)
				}
			}
		}
	}
	if len(candidates) == 0 {
		candidates = htmlAttrs(out, "img[src]", "src")
	}
	if len(candidates) == 0 {
		for _, m := range markdownImageRe.FindAllStringSubmatch(out, -1) {
			candidates = append(candidates, m[1])
		}
	}
	if len(candidates) == 0 {
		for _, u := range bareURLRe.FindAllString(out, -1) {
			if imageExtRe.MatchString(u) {
				candidates = append(candidates, u)
			}
		}
	}

	images := []ImageRef{}
	seen := make(map[string]bool)
	for _, c := range candidates {
		u, ok := resolveURL(base, c)
		if !ok || seen[u] {
			continue
		}
		seen[u] = true
		images = append(images, ImageRef{URL: u})
	}
	return images
}
