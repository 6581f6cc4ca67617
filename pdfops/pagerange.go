package pdfops

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cppla/pdftoolkit/utils"
)

// ParsePageRange validates a 1-based page selection such as "1-3,5" against total.
// An empty selection or "all" selects every page. The result is sorted and free of duplicates.
func ParsePageRange(spec string, total int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		return allPages(total), nil
	}

	seen := map[int]struct{}{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			start, end, err := splitRange(part)
			if err != nil || start < 1 || end > total || start > end {
				return nil, utils.ValidationError(utils.CodeInvalidPageRange, fmt.Sprintf("Invalid page range format: %s", part))
			}
			for p := start; p <= end; p++ {
				seen[p] = struct{}{}
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 1 || p > total {
			return nil, utils.ValidationError(utils.CodeInvalidPageNumber, fmt.Sprintf("Invalid page number: %s", part))
		}
		seen[p] = struct{}{}
	}

	if len(seen) == 0 {
		return nil, utils.ValidationError(utils.CodeNoPages, "No valid pages specified")
	}
	return sortedKeys(seen), nil
}

// ClipPageRange is the lenient variant used when merging: pages outside 1..total are dropped
// and open-ended ranges are clipped. Malformed parts are still an error.
func ClipPageRange(spec string, total int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		return allPages(total), nil
	}

	seen := map[int]struct{}{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			start, end, err := splitRange(part)
			if err != nil {
				return nil, utils.ValidationError(utils.CodeInvalidPageRange, fmt.Sprintf("Invalid page range format: %s", part))
			}
			start = max(start, 1)
			end = min(end, total)
			for p := start; p <= end; p++ {
				seen[p] = struct{}{}
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, utils.ValidationError(utils.CodeInvalidPageNumber, fmt.Sprintf("Invalid page number: %s", part))
		}
		if p >= 1 && p <= total {
			seen[p] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

// PageSelection renders pages in the compact form pdfcpu expects, e.g. "1-3,5".
func PageSelection(pages []int) []string {
	if len(pages) == 0 {
		return nil
	}
	var out []string
	start, prev := pages[0], pages[0]
	flush := func() {
		if start == prev {
			out = append(out, strconv.Itoa(start))
		} else {
			out = append(out, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, p := range pages[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()
	return out
}

func splitRange(part string) (int, int, error) {
	a, b, _ := strings.Cut(part, "-")
	start, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func allPages(total int) []int {
	pages := make([]int, 0, total)
	for p := 1; p <= total; p++ {
		pages = append(pages, p)
	}
	return pages
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
