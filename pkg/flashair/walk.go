package flashair

import "context"

// Lister lists the immediate entries of a card directory.
type Lister interface {
	List(ctx context.Context, dir string) ([]Entry, error)
}

// Walk returns every file below root using an explicit stack. A failure to
// list root is returned; failures below root go to onError and that subtree
// is skipped.
func Walk(ctx context.Context, l Lister, root string, onError func(dir string, err error)) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := l.List(ctx, root)
	if err != nil {
		return nil, err
	}

	var files []string
	stack := []string{}
	push := func(entries []Entry) {
		for _, e := range entries {
			if e.IsDir() {
				stack = append(stack, e.Path())
			} else {
				files = append(files, e.Path())
			}
		}
	}
	push(entries)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return files, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := l.List(ctx, dir)
		if err != nil {
			if onError != nil {
				onError(dir, err)
			}
			continue
		}
		push(entries)
	}
	return files, nil
}
