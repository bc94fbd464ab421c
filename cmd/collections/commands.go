package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/SietraX/saved/internal/apiclient"
	"github.com/SietraX/saved/internal/collections"
	"github.com/SietraX/saved/internal/controls"
	"github.com/SietraX/saved/internal/loader"
	"github.com/SietraX/saved/internal/ordering"
	"github.com/SietraX/saved/internal/video"
)

var errUsage = errors.New(usage)

type cli struct {
	api *apiclient.Client
	in  io.Reader
	out io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	store := collections.NewStore(c.api)

	switch cmd {
	case "list":
		if err := store.Refresh(ctx); err != nil {
			return err
		}
		c.printCollections(store.Collections())
		return nil

	case "create":
		if len(rest) != 1 {
			return errUsage
		}
		var created collections.Collection
		input := controls.NewNewCollectionInput(func(ctx context.Context, name string) error {
			var err error
			created, err = store.Create(ctx, name)
			return err
		})
		input.SetValue(rest[0])
		if err := input.HandleKey(ctx, "Enter"); err != nil {
			return err
		}
		if created.ID == "" {
			return collections.ErrInvalidName
		}
		fmt.Fprintf(c.out, "created %s %q\n", created.ID, created.Name)
		return nil

	case "rename":
		if len(rest) != 2 {
			return errUsage
		}
		if err := store.Refresh(ctx); err != nil {
			return err
		}
		updated, err := store.Update(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "renamed %s to %q\n", updated.ID, updated.Name)
		return nil

	case "delete":
		return c.delete(ctx, store, rest)

	case "top":
		if len(rest) != 1 {
			return errUsage
		}
		if err := store.Refresh(ctx); err != nil {
			return err
		}
		if _, ok := store.Get(rest[0]); !ok {
			return collections.ErrNotFound
		}
		order, err := store.MoveToTop(ctx, rest[0])
		if err != nil {
			return err
		}
		c.printCollections(order)
		return nil

	case "reorder":
		return c.reorder(ctx, store, rest)

	case "videos":
		return c.videos(ctx, rest)

	case "search":
		if len(rest) == 0 {
			return errUsage
		}
		return c.search(ctx, strings.Join(rest, " "))

	case "later":
		return c.watchLater(ctx)

	case "transcript":
		if len(rest) != 1 {
			return errUsage
		}
		return c.transcript(ctx, rest[0])
	}
	return errUsage
}

func (c *cli) printCollections(list []collections.Collection) {
	for _, col := range list {
		fmt.Fprintf(c.out, "%2d. %-30s %4d videos  %s\n", col.DisplayOrder+1, col.Name, col.VideoCount, col.ID)
	}
}

func (c *cli) delete(ctx context.Context, store *collections.Store, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := fs.Bool("y", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	if err := store.Refresh(ctx); err != nil {
		return err
	}
	col, ok := store.Get(fs.Arg(0))
	if !ok {
		return collections.ErrNotFound
	}

	var confirm controls.DeleteConfirmation
	confirm.Open(col.ID)
	if !*yes && !c.ask(fmt.Sprintf("Delete %q and its %d videos? [y/N] ", col.Name, col.VideoCount)) {
		confirm.Close()
	}

	id, pending := confirm.PendingID()
	if !pending {
		fmt.Fprintln(c.out, "cancelled")
		return nil
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	confirm.Close()
	fmt.Fprintf(c.out, "deleted %q\n", col.Name)
	return nil
}

func (c *cli) ask(prompt string) bool {
	fmt.Fprint(c.out, prompt)
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// reorder drags each named collection into place, first name first, the way
// the edit mode of the collection list does it.
func (c *cli) reorder(ctx context.Context, store *collections.Store, ids []string) error {
	if len(ids) == 0 {
		return errUsage
	}
	if err := store.Refresh(ctx); err != nil {
		return err
	}

	list := ordering.NewList(store.Collections())
	list.EnterEditMode()
	for to, id := range ids {
		from := ordering.IndexOf(list.Items(), id)
		if from < 0 {
			list.CancelEditMode()
			return fmt.Errorf("%w: %s", collections.ErrNotFound, id)
		}
		list.OnDragEnd(ordering.DragResult{Source: from, Destination: &to})
	}

	order := list.SaveOrder()
	if err := store.Reorder(ctx, order); err != nil {
		return err
	}
	c.printCollections(store.Collections())
	return nil
}

func (c *cli) videos(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("videos", flag.ContinueOnError)
	term := fs.String("q", "", "title search term")
	kind := fs.String("type", "all", "all, videos or shorts")
	sortBy := fs.String("sort", string(video.SortDateAddedNewest), "sort order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errUsage
	}

	src, err := loader.ParseSourceType(fs.Arg(0))
	if err != nil {
		return err
	}
	ft, err := video.ParseFilterType(*kind)
	if err != nil {
		return err
	}
	order, err := video.ParseSortOrder(*sortBy)
	if err != nil {
		return err
	}

	l := loader.New(c.api)
	defer l.Close()
	if err := l.Load(ctx, fs.Arg(1), src); err != nil && l.State().Err == "" {
		return err
	}
	st := l.State()
	if st.Err != "" {
		return errors.New(st.Err)
	}

	f := video.NewFilter(st.Videos)
	f.SetSearchTerm(*term)
	f.SetFilterType(ft)
	f.SetSortOrder(order)

	if st.Playlist != nil {
		fmt.Fprintf(c.out, "%s (%d videos)\n", st.Playlist.Title, st.Playlist.ItemCount)
	}
	for _, v := range f.Output() {
		marker := " "
		if v.IsShort() {
			marker = "S"
		}
		fmt.Fprintf(c.out, "%s %-11s  %s  [%s]\n", marker, v.ID, v.Title, v.ChannelTitle)
	}
	return nil
}

func (c *cli) search(ctx context.Context, term string) error {
	results, err := c.api.Search(ctx, term)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(c.out, "no matches")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(c.out, "%s  %s\n", r.VideoID, r.Title)
		for _, m := range r.Matches {
			fmt.Fprintf(c.out, "    %s  %s\n", timestamp(m.Timestamp), m.Text)
		}
	}
	return nil
}

func (c *cli) watchLater(ctx context.Context) error {
	recs, err := c.api.WatchLater(ctx)
	if err != nil {
		return err
	}
	for _, r := range recs {
		v := video.Normalize(r)
		fmt.Fprintf(c.out, "%-11s  %s  [%s]\n", v.ID, v.Title, v.ChannelTitle)
	}
	return nil
}

func (c *cli) transcript(ctx context.Context, videoID string) error {
	segs, err := c.api.Transcript(ctx, videoID)
	if errors.Is(err, collections.ErrNotFound) {
		fmt.Fprintln(c.out, "no transcript stored yet")
		return nil
	}
	if err != nil {
		return err
	}
	for _, s := range segs {
		fmt.Fprintf(c.out, "%s  %s\n", timestamp(s.Start), s.Text)
	}
	return nil
}

func timestamp(seconds float64) string {
	s := int(seconds)
	if s < 0 {
		s = 0
	}
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
