package httpapi

import (
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

var errBadBody = common.WithMessage(common.ErrorValidation, "Invalid request body")

func bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return errBadBody
	}
	return nil
}

func (s *Server) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := s.users.Register(c.UserContext(), req.Username, req.Email, req.Password); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful. Please check your email for a verification code.",
	})
}

func (s *Server) verifyRegistration(c *fiber.Ctx) error {
	var req codeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := s.users.VerifyRegistration(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return s.openSession(c, sess, "Email verified successfully! Welcome!")
}

func (s *Server) login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.users.Login(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		return err
	}
	if res.Requires2FA {
		return c.JSON(authResponse{
			Requires2FA: true,
			Email:       res.Email,
			Message:     "Verification code sent to your email",
		})
	}
	return s.openSession(c, res.Session, "Login successful")
}

func (s *Server) verify2FA(c *fiber.Ctx) error {
	var req codeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := s.users.Verify2FA(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return s.openSession(c, sess, "Login successful")
}

func (s *Server) extendSession(c *fiber.Ctx) error {
	sess, err := s.users.Extend(c.UserContext(), claimsOf(c))
	if err != nil {
		return err
	}
	return s.openSession(c, sess, "Session extended successfully")
}

// logout always clears the cookie. A valid token is revoked; a missing or
// dead one is not an error.
func (s *Server) logout(c *fiber.Ctx) error {
	if claims, err := s.authenticate(c); err == nil {
		if err := s.users.Logout(c.UserContext(), claims); err != nil {
			return err
		}
	}
	s.clearCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (s *Server) profile(c *fiber.Ctx) error {
	u, err := s.users.Profile(c.UserContext(), claimsOf(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(privateUser(u))
}

func (s *Server) updateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := s.users.UpdateProfile(c.UserContext(), claimsOf(c).UserID, req.Username, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile updated successfully", "user": privateUser(u)})
}

func (s *Server) deleteProfile(c *fiber.Ctx) error {
	if err := s.users.DeleteAccount(c.UserContext(), claimsOf(c)); err != nil {
		return err
	}
	s.clearCookie(c)
	return c.JSON(fiber.Map{"message": "Account and all related data deleted successfully"})
}

func (s *Server) resendVerification(c *fiber.Ctx) error {
	var req identifierRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.users.ResendVerification(c.UserContext(), req.Identifier); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Verification email sent."})
}

func (s *Server) forgotPassword(c *fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.users.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": services.ResetRequestedMessage})
}

func (s *Server) resetPassword(c *fiber.Ctx) error {
	var req resetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.users.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password has been reset successfully"})
}

// changePassword ends every session of the account, the caller's included,
// so the cookie is cleared as well.
func (s *Server) changePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.users.ChangePassword(c.UserContext(), claimsOf(c), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	s.clearCookie(c)
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

func (s *Server) toggle2FA(c *fiber.Ctx) error {
	var req toggle2FARequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := s.users.SetTwoFactor(c.UserContext(), claimsOf(c).UserID, req.Enable)
	if err != nil {
		return err
	}
	state := "disabled"
	if u.TwoFAEnabled {
		state = "enabled"
	}
	return c.JSON(fiber.Map{
		"message":       "2FA " + state + " successfully",
		"twofa_enabled": u.TwoFAEnabled,
	})
}

// openSession sets the session cookie and answers with the token and its
// expiry so bearer clients can use it too.
func (s *Server) openSession(c *fiber.Ctx, sess *services.Session, msg string) error {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookie.Name,
		Value:    sess.Token.Value,
		Path:     "/",
		Expires:  sess.Token.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(authResponse{
		User:             privateUser(sess.User),
		Message:          msg,
		SessionExpiresAt: sess.Token.ExpiresAt.Unix(),
		AccessToken:      sess.Token.Value,
	})
}

func (s *Server) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
