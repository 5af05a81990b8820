// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

import (
	"context"

	"golang.org/x/sync/errgroup"

	"appendtree.io/appendtree"
	"appendtree.io/errors"
	"appendtree.io/path"
	"appendtree.io/record"
)

// maxListFetch bounds the concurrent reads issued by List.
const maxListFetch = 8

// Get returns the record most recently appended at name, as seen from
// the tip of t. It fails with errors.NotExist if name was never written,
// was shadowed by a later write of one of its ancestors as a leaf, or names
// a directory. A pre-split path can be given as path.FromElems(...).Path().
func (t *Tree) Get(ctx context.Context, name appendtree.PathName) (*record.Record, error) {
	const op errors.Op = "tree.Get"
	p, err := parse(op, name)
	if err != nil {
		return nil, err
	}
	r, err := t.lookup(ctx, op, p, nil)
	t.metrics.observe(op, err)
	return r, err
}

// Proof returns the seqs of the records visited to resolve name, tip
// first and the record Get would return last. Fetching just those records
// is enough to repeat the lookup.
func (t *Tree) Proof(ctx context.Context, name appendtree.PathName) ([]int64, error) {
	const op errors.Op = "tree.Proof"
	p, err := parse(op, name)
	if err != nil {
		return nil, err
	}
	var seqs []int64
	_, err = t.lookup(ctx, op, p, func(seq int64) { seqs = append(seqs, seq) })
	t.metrics.observe(op, err)
	if err != nil {
		return nil, err
	}
	return seqs, nil
}

// lookup runs the exact-match descent from the tip, calling visit for
// every record it steps onto.
func (t *Tree) lookup(ctx context.Context, op errors.Op, target path.Parsed, visit func(int64)) (*record.Record, error) {
	anchor, err := t.tip(ctx)
	if err != nil {
		return nil, errors.E(op, target.Path(), err)
	}
	if anchor == nil {
		return nil, notFound(op, target.Path())
	}
	steps := 0
	defer func() { t.metrics.steps.Observe(float64(steps)) }()
	for {
		steps++
		if visit != nil {
			visit(anchor.Seq)
		}
		i := anchor.Path.Shared(target)
		if i == target.NElem() {
			if anchor.Path.NElem() == i {
				return anchor, nil
			}
			// Anchor lies below target: target is a directory.
			return nil, notFound(op, target.Path())
		}
		next, err := t.follow(ctx, anchor, i, target.Elem(i))
		if err != nil {
			return nil, errors.E(op, target.Path(), err)
		}
		if next == nil {
			return nil, notFound(op, target.Path())
		}
		anchor = next
	}
}

// follow returns the candidate at level i of anchor's table whose element
// i is name, or nil if there is none. Candidates are tried newest first.
func (t *Tree) follow(ctx context.Context, anchor *record.Record, i int, name string) (*record.Record, error) {
	table, err := anchor.Backrefs()
	if err != nil {
		return nil, err
	}
	cands := table.Level(i)
	t.prefetch(cands)
	for j := len(cands) - 1; j >= 0; j-- {
		if err := ctx.Err(); err != nil {
			return nil, errors.E(errors.IO, err)
		}
		r, err := t.fetch(ctx, cands[j])
		if err != nil {
			return nil, err
		}
		if i < r.Path.NElem() && r.Path.Elem(i) == name {
			return r, nil
		}
	}
	return nil, nil
}

// children returns the seqs of the records that each contribute one
// child of dir, in ascending order, or nil if dir is not a directory
// as seen from anchor.
func (t *Tree) children(ctx context.Context, anchor *record.Record, dir path.Parsed) ([]int64, error) {
	for {
		i := anchor.Path.Shared(dir)
		if i == anchor.Path.NElem() {
			// Anchor is a leaf at or above dir; consult its own level.
			i--
		}
		if i < 0 {
			return nil, nil
		}
		table, err := anchor.Backrefs()
		if err != nil {
			return nil, err
		}
		cands := table.Level(i)
		if i == dir.NElem() {
			return append(cands, anchor.Seq), nil
		}
		next, err := t.follow(ctx, anchor, i, dir.Elem(i))
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}
		anchor = next
	}
}

// List returns the names of the immediate children of the directory
// name, in the order their defining records were appended. It fails with
// errors.NotExist if name is not a directory.
func (t *Tree) List(ctx context.Context, name appendtree.PathName) ([]string, error) {
	const op errors.Op = "tree.List"
	names, err := t.list(ctx, op, name)
	t.metrics.observe(op, err)
	return names, err
}

func (t *Tree) list(ctx context.Context, op errors.Op, name appendtree.PathName) ([]string, error) {
	dir, seqs, err := t.childSeqs(ctx, op, name)
	if err != nil {
		return nil, err
	}
	t.prefetch(seqs)
	names := make([]string, len(seqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxListFetch)
	for i, seq := range seqs {
		i, seq := i, seq
		g.Go(func() error {
			r, err := t.fetch(gctx, seq)
			if err != nil {
				return err
			}
			if r.Path.NElem() <= dir.NElem() {
				return errors.E(errors.Internal, errors.Errorf("record %d at %s is not below %s", seq, r.Path, dir))
			}
			names[i] = r.Path.Elem(dir.NElem())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.E(op, dir.Path(), err)
	}
	return names, nil
}

// Count returns the number of immediate children of the directory name.
func (t *Tree) Count(ctx context.Context, name appendtree.PathName) (int, error) {
	const op errors.Op = "tree.Count"
	_, seqs, err := t.childSeqs(ctx, op, name)
	t.metrics.observe(op, err)
	return len(seqs), err
}

func (t *Tree) childSeqs(ctx context.Context, op errors.Op, name appendtree.PathName) (path.Parsed, []int64, error) {
	dir, err := parse(op, name)
	if err != nil {
		return dir, nil, err
	}
	anchor, err := t.tip(ctx)
	if err != nil {
		return dir, nil, errors.E(op, dir.Path(), err)
	}
	if anchor == nil {
		return dir, nil, notFound(op, dir.Path())
	}
	seqs, err := t.children(ctx, anchor, dir)
	if err != nil {
		return dir, nil, errors.E(op, dir.Path(), err)
	}
	if seqs == nil {
		return dir, nil, notFound(op, dir.Path())
	}
	return dir, seqs, nil
}
