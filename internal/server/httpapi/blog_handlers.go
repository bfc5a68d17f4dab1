package httpapi

import (
	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPerPage = 20
)

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, common.WithMessage(common.ErrorValidation, "Invalid id")
	}
	return int64(id), nil
}

func (s *Server) listPosts(c *fiber.Ctx) error {
	posts, err := s.blog.ListPosts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(toPosts(posts))
}

func (s *Server) getPost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := s.blog.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toPost(p))
}

func (s *Server) createPost(c *fiber.Ctx) error {
	var req postRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.blog.CreatePost(c.UserContext(), claimsOf(c).UserID, services.PostInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toPost(p))
}

func (s *Server) updatePost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req postRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.blog.UpdatePost(c.UserContext(), claimsOf(c).UserID, id, services.PostInput(req))
	if err != nil {
		return err
	}
	return c.JSON(toPost(p))
}

func (s *Server) deletePost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := s.blog.DeletePost(c.UserContext(), claimsOf(c).UserID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"msg": "Post deleted successfully"})
}

func (s *Server) vote(kind models.VoteKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		up, down, err := s.blog.Vote(c.UserContext(), claimsOf(c).UserID, id, kind)
		if err != nil {
			return err
		}
		return c.JSON(voteResponse{Upvotes: up, Downvotes: down})
	}
}

func (s *Server) listComments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	comments, err := s.blog.ListComments(c.UserContext(), id)
	if err != nil {
		return err
	}
	out := make([]commentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, toComment(&comments[i]))
	}
	return c.JSON(out)
}

func (s *Server) createComment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	cm, err := s.blog.CreateComment(c.UserContext(), claimsOf(c).UserID, id, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toComment(cm))
}

func (s *Server) deleteComment(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	commentID, err := paramID(c, "cid")
	if err != nil {
		return err
	}
	if err := s.blog.DeleteComment(c.UserContext(), claimsOf(c).UserID, postID, commentID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"msg": "Comment deleted successfully"})
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	page, err := s.users.ListUsers(c.UserContext(), models.UserFilter{
		Search:  c.Query("search"),
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", defaultPerPage),
	})
	if err != nil {
		return err
	}
	out := usersPageResponse{Users: make([]userResponse, 0, len(page.Users)), Total: page.Total, Pages: page.Pages, CurrentPage: page.Page}
	for i := range page.Users {
		out.Users = append(out.Users, publicUser(&page.Users[i]))
	}
	return c.JSON(out)
}

func (s *Server) getUser(c *fiber.Ctx) error {
	u, err := s.users.GetUser(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(publicUser(u))
}

func (s *Server) userPosts(c *fiber.Ctx) error {
	posts, err := s.blog.UserPosts(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(toPosts(posts))
}
