package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/services"
)

const dateLayout = "2006-01-02 15:04"

// Posts lists posts. Usage: posts [newest|oldest|popular] [search words].
func (a *App) Posts(ctx context.Context, args []string) error {
	f := services.PostFilter{Sort: services.SortNewest}
	if len(args) > 0 {
		switch s := services.PostSort(strings.ToLower(args[0])); s {
		case services.SortNewest, services.SortOldest, services.SortPopular:
			f.Sort = s
			args = args[1:]
		}
	}
	f.Search = strings.Join(args, " ")

	posts, err := a.blog.Posts(ctx, f)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Fprintln(a.out, "No posts found.")
		return nil
	}
	for _, p := range posts {
		a.printPostLine(p)
	}
	return nil
}

func (a *App) Post(ctx context.Context, args []string) error {
	id, err := idArg(args, 0, "post <id>")
	if err != nil {
		return err
	}
	p, comments, err := a.blog.Post(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "#%d %s\n", p.ID, p.Title)
	fmt.Fprintf(a.out, "by %s on %s, score %d (+%d/-%d)\n", author(*p), p.CreatedAt.Local().Format(dateLayout), p.Score(), p.Upvotes, p.Downvotes)
	if tags := p.Tags(); len(tags) > 0 {
		fmt.Fprintf(a.out, "tags: %s\n", strings.Join(tags, ", "))
	}
	fmt.Fprintf(a.out, "\n%s\n\n", p.Content)

	fmt.Fprintf(a.out, "%d comment(s)\n", len(comments))
	for _, c := range comments {
		fmt.Fprintf(a.out, "  [%d] %s (%s): %s\n", c.ID, c.Username, c.CreatedAt.Local().Format(dateLayout), c.Content)
	}
	return nil
}

func (a *App) NewPost(ctx context.Context, _ []string) error {
	title, err := promptLine(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	content, err := promptBody(a.reader, "Content", a.out)
	if err != nil {
		return err
	}
	tags, err := promptLine(a.reader, "Tags (comma separated, optional)", a.out)
	if err != nil {
		return err
	}

	p, err := a.blog.CreatePost(ctx, title, content, tags)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created post #%d\n", p.ID)
	return nil
}

// EditPost prompts with the current values; empty answers keep them.
func (a *App) EditPost(ctx context.Context, args []string) error {
	id, err := idArg(args, 0, "editpost <id>")
	if err != nil {
		return err
	}
	cur, _, err := a.blog.Post(ctx, id)
	if err != nil {
		return err
	}

	title, err := promptLine(a.reader, fmt.Sprintf("Title [%s]", cur.Title), a.out)
	if err != nil {
		return err
	}
	content, err := promptBody(a.reader, "Content (empty keeps the current text)", a.out)
	if err != nil {
		return err
	}
	curTags := strings.Join(cur.Tags(), ",")
	tags, err := promptLine(a.reader, fmt.Sprintf("Tags [%s]", curTags), a.out)
	if err != nil {
		return err
	}

	if title == "" {
		title = cur.Title
	}
	if content == "" {
		content = cur.Content
	}
	if tags == "" {
		tags = curTags
	}

	p, err := a.blog.UpdatePost(ctx, id, title, content, tags)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated post #%d\n", p.ID)
	return nil
}

func (a *App) DeletePost(ctx context.Context, args []string) error {
	id, err := idArg(args, 0, "delpost <id>")
	if err != nil {
		return err
	}
	ok, err := confirm(a.reader, fmt.Sprintf("Delete post #%d?", id), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err := a.blog.DeletePost(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted post #%d\n", id)
	return nil
}

func (a *App) Comment(ctx context.Context, args []string) error {
	id, err := idArg(args, 0, "comment <id>")
	if err != nil {
		return err
	}
	content, err := promptBody(a.reader, "Comment", a.out)
	if err != nil {
		return err
	}
	c, err := a.blog.Comment(ctx, id, content)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added comment #%d\n", c.ID)
	return nil
}

func (a *App) DeleteComment(ctx context.Context, args []string) error {
	const usage = "delcomment <post id> <comment id>"
	postID, err := idArg(args, 0, usage)
	if err != nil {
		return err
	}
	commentID, err := idArg(args, 1, usage)
	if err != nil {
		return err
	}
	if err := a.blog.DeleteComment(ctx, postID, commentID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted comment #%d\n", commentID)
	return nil
}

func (a *App) Vote(ctx context.Context, args []string, up bool) error {
	usage := "down <id>"
	if up {
		usage = "up <id>"
	}
	id, err := idArg(args, 0, usage)
	if err != nil {
		return err
	}
	v, err := a.blog.Vote(ctx, id, up)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Post #%d: +%d/-%d\n", id, v.Upvotes, v.Downvotes)
	return nil
}

// Users lists the user directory. Usage: users [search words] [page].
func (a *App) Users(ctx context.Context, args []string) error {
	page := 1
	if n := len(args); n > 0 {
		if p, err := strconv.Atoi(args[n-1]); err == nil && p > 0 {
			page = p
			args = args[:n-1]
		}
	}

	res, err := a.blog.Users(ctx, strings.Join(args, " "), page)
	if err != nil {
		return err
	}
	for _, u := range res.Users {
		fmt.Fprintf(a.out, "%6d  %s\n", u.ID, u.Username)
	}
	fmt.Fprintf(a.out, "page %d of %d (%d users)\n", res.CurrentPage, max(res.Pages, 1), res.Total)
	return nil
}

func (a *App) User(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("user <username>")
	}
	u, posts, err := a.blog.UserProfile(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (id %d)", u.Username, u.ID)
	if u.CreatedAt != nil {
		fmt.Fprintf(a.out, ", member since %s", u.CreatedAt.Local().Format("2006-01-02"))
	}
	fmt.Fprintf(a.out, "\n%d post(s)\n", len(posts))
	for _, p := range posts {
		a.printPostLine(p)
	}
	return nil
}

func (a *App) printPostLine(p models.Post) {
	line := fmt.Sprintf("%5d  %+4d  %s  %s by %s", p.ID, p.Score(), p.CreatedAt.Local().Format(dateLayout), p.Title, author(p))
	if tags := p.Tags(); len(tags) > 0 {
		line += " [" + strings.Join(tags, ", ") + "]"
	}
	fmt.Fprintln(a.out, line)
}

func author(p models.Post) string {
	if p.Author != "" {
		return p.Author
	}
	return "user " + strconv.FormatInt(p.UserID, 10)
}

func idArg(args []string, i int, usage string) (int64, error) {
	if len(args) <= i {
		return 0, usageError(usage)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError(usage)
	}
	return id, nil
}
