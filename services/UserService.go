package services

import (
	"context"
	"net/mail"
	"strings"

	"storefront/entities"
	"storefront/identity"
	"storefront/logger"
	"storefront/models"
	"storefront/policy"
	"storefront/repository"
)

const recentOrderCount = 5

type UserService struct {
	ur     repository.UserRepository
	sr     repository.SessionRepository
	or     repository.OrderRepository
	rr     repository.ReviewRepository
	ar     repository.AddressRepository
	tx     repository.Transactor
	orders *OrderService
	rating *RatingService
	tokens *identity.TokenIssuer
	log    *logger.Logger
}

func NewUserService(uRepo repository.UserRepository, sRepo repository.SessionRepository, orderRepo repository.OrderRepository, reviewRepo repository.ReviewRepository, addressRepo repository.AddressRepository, tx repository.Transactor, orders *OrderService, rating *RatingService, tokens *identity.TokenIssuer, log *logger.Logger) UserService {
	return UserService{
		ur:     uRepo,
		sr:     sRepo,
		or:     orderRepo,
		rr:     reviewRepo,
		ar:     addressRepo,
		tx:     tx,
		orders: orders,
		rating: rating,
		tokens: tokens,
		log:    log.With("service", "user"),
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", models.BadRequest("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", models.BadRequest("email is not valid")
	}
	return email, nil
}

func (us *UserService) ListUsers(ctx context.Context, who identity.Identity, filter models.UserFilter) (list entities.List[entities.User], err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	if filter.Role != "" && !filter.Role.Valid() {
		err = models.BadRequest("unknown role %q", filter.Role)
		return
	}
	users, total, err := us.ur.ListUsers(ctx, filter)
	if err != nil {
		return
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.Id)
	}
	counts, err := us.or.CountOrdersByUsers(ctx, ids)
	if err != nil {
		return
	}
	items := make([]entities.User, 0, len(users))
	for _, u := range users {
		items = append(items, entities.User{User: u, OrderCount: counts[u.Id]})
	}
	list = entities.NewList(items, total, filter.Page)
	return
}

func (us *UserService) CreateUser(ctx context.Context, who identity.Identity, in models.UserInput) (uModel models.User, err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	uModel.Name = strings.TrimSpace(in.Name)
	uModel.Image = in.Image
	uModel.Role = in.Role
	if uModel.Role == "" {
		uModel.Role = models.RoleCustomer
	}
	if !uModel.Role.Valid() {
		err = models.BadRequest("unknown role %q", in.Role)
		return
	}
	if uModel.Email, err = normalizeEmail(in.Email); err != nil {
		return
	}

	var ex bool
	_, ex, err = us.ur.GetUserByEmail(ctx, uModel.Email)
	if err != nil {
		return
	}
	if ex {
		err = models.Conflict("user with this email already exists")
		return
	}
	if in.Password != "" {
		var hashed string
		if hashed, err = us.ur.EncryptPassword(in.Password); err != nil {
			return
		}
		uModel.HashedPassword = &hashed
	}
	if err = us.ur.AddNewUser(ctx, &uModel); err != nil {
		return
	}
	us.log.Info("user created", "userId", uModel.Id, "role", string(uModel.Role))
	return
}

func (us *UserService) loadUser(ctx context.Context, userId string) (models.User, error) {
	u, exists, err := us.ur.GetUserById(ctx, userId)
	if err != nil {
		return u, err
	}
	if !exists {
		return u, models.NotFound("user not found")
	}
	return u, nil
}

// GetUserById returns the user with addresses, the most recent orders and
// order and review counts.
func (us *UserService) GetUserById(ctx context.Context, who identity.Identity, userId string) (detail entities.UserDetail, err error) {
	if err = policy.Authenticated(who); err != nil {
		return
	}
	if err = policy.Check(who, policy.ReadOwnOrSelf, userId); err != nil {
		return
	}
	detail.User, err = us.loadUser(ctx, userId)
	if err != nil {
		return
	}
	if detail.Addresses, err = us.ar.GetAddressesByUser(ctx, userId); err != nil {
		return
	}
	if detail.Addresses == nil {
		detail.Addresses = []models.Address{}
	}
	recent, _, err := us.or.SearchOrders(ctx, models.OrderFilter{
		UserId: userId,
		Page:   models.Page{Page: 1, Limit: recentOrderCount},
	})
	if err != nil {
		return
	}
	if detail.Orders, err = us.orders.withDetails(ctx, recent); err != nil {
		return
	}
	counts, err := us.or.CountOrdersByUsers(ctx, []string{userId})
	if err != nil {
		return
	}
	detail.OrderCount = counts[userId]
	detail.ReviewCount, err = us.rr.CountReviewsByUser(ctx, userId)
	return
}

// UpdateUser changes name, image and password. The role only changes when
// an admin asks for it; a role sent by anybody else is ignored.
func (us *UserService) UpdateUser(ctx context.Context, who identity.Identity, userId string, patch models.UserPatch) (uModel models.User, err error) {
	if err = policy.Check(who, policy.WriteOwnOrSelf, userId); err != nil {
		return
	}
	if patch.Role != nil && who.IsAdmin() && !patch.Role.Valid() {
		err = models.BadRequest("unknown role %q", *patch.Role)
		return
	}
	uModel, err = us.loadUser(ctx, userId)
	if err != nil {
		return
	}
	if patch.Name != nil {
		uModel.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Image != nil {
		uModel.Image = *patch.Image
	}
	if patch.Role != nil && who.IsAdmin() {
		uModel.Role = *patch.Role
	}
	if patch.Password != nil && *patch.Password != "" {
		var hashed string
		if hashed, err = us.ur.EncryptPassword(*patch.Password); err != nil {
			return
		}
		uModel.HashedPassword = &hashed
	}
	if err = us.ur.UpdateUser(ctx, uModel); err != nil {
		return
	}
	return us.loadUser(ctx, userId)
}

// DeleteUser removes the user with their reviews and addresses, then
// recomputes the rating of every product they had reviewed.
func (us *UserService) DeleteUser(ctx context.Context, who identity.Identity, userId string) (err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	if _, err = us.loadUser(ctx, userId); err != nil {
		return
	}
	err = us.tx.WithinTx(ctx, func(ctx context.Context) error {
		reviewed, err := us.rr.GetReviewedProductIds(ctx, userId)
		if err != nil {
			return err
		}
		if err := us.ur.DeleteUser(ctx, userId); err != nil {
			return err
		}
		for _, productId := range reviewed {
			if _, _, err := us.rating.Recompute(ctx, productId); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return
	}
	us.log.Info("user deleted", "userId", userId)
	return
}

func (us *UserService) GetProfile(ctx context.Context, who identity.Identity) (profile entities.Profile, err error) {
	if err = policy.Authenticated(who); err != nil {
		return
	}
	if err = policy.Check(who, policy.ReadOwnOrSelf, who.ID); err != nil {
		return
	}
	profile.User, err = us.loadUser(ctx, who.ID)
	if err != nil {
		return
	}
	profile.Addresses, err = us.ar.GetAddressesByUser(ctx, who.ID)
	if profile.Addresses == nil {
		profile.Addresses = []models.Address{}
	}
	return
}

// UpdateProfile edits the caller's own name and image. Empty values leave
// the field unchanged, and at least one must be given.
func (us *UserService) UpdateProfile(ctx context.Context, who identity.Identity, patch models.ProfilePatch) (uModel models.User, err error) {
	if err = policy.Check(who, policy.WriteOwnOrSelf, who.ID); err != nil {
		return
	}
	name := strings.TrimSpace(patch.Name)
	if name == "" && patch.Image == "" {
		err = models.BadRequest("at least one field to update must be provided")
		return
	}
	uModel, err = us.loadUser(ctx, who.ID)
	if err != nil {
		return
	}
	if name != "" {
		uModel.Name = name
	}
	if patch.Image != "" {
		uModel.Image = patch.Image
	}
	if err = us.ur.UpdateUser(ctx, uModel); err != nil {
		return
	}
	return us.loadUser(ctx, who.ID)
}

// SignIn verifies the password against the stored bcrypt hash, opens a
// session and issues a bearer token. Unknown email and wrong password are
// reported the same way.
func (us *UserService) SignIn(ctx context.Context, creds models.Credentials) (res entities.SignInResult, err error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		err = models.BadRequest("email and password are required")
		return
	}
	uModel, ex, err := us.ur.GetUserByEmail(ctx, email)
	if err != nil {
		return
	}
	if !ex || uModel.HashedPassword == nil || !us.ur.VerifyPassword(*uModel.HashedPassword, creds.Password) {
		us.log.Info("sign in rejected", "email", email)
		err = models.Unauthorized("invalid email or password")
		return
	}
	if res.SessionId, err = us.sr.CreateSession(ctx, uModel.Id, uModel.Role); err != nil {
		return
	}
	if res.Token, err = us.tokens.Issue(uModel.Id, uModel.Role); err != nil {
		us.log.Error("Issue", "error", err)
		err = models.ErrServerError
		return
	}
	res.User = userSummary(uModel, true)
	return
}

// RefreshSession extends a live session owned by the caller.
func (us *UserService) RefreshSession(ctx context.Context, who identity.Identity, sessionId string) error {
	if err := policy.Authenticated(who); err != nil {
		return err
	}
	userId, _, exists, err := us.sr.GetUserSessionInfo(ctx, sessionId)
	if err != nil {
		return err
	}
	if !exists || userId != who.ID {
		return models.Unauthorized("session expired")
	}
	return us.sr.RefreshSession(ctx, sessionId)
}

func (us *UserService) SignOut(ctx context.Context, sessionId string) error {
	if sessionId == "" {
		return nil
	}
	return us.sr.DeleteSession(ctx, sessionId)
}
