package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"saas_backend/internal/auth/identity"
	"saas_backend/internal/auth/token"
	"saas_backend/internal/lib/apperr"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/metrics"
	"saas_backend/internal/models"
	"saas_backend/internal/storage"
)

const inviteCodeBytes = 32

var ErrConfirmationNotSent = errors.New("confirmation email was not sent")

type CompanyProvider interface {
	CompanyByID(ctx context.Context, id int64) (models.Company, error)
	CompanyBySlug(ctx context.Context, slug string) (models.Company, error)
}

type InviteSaver interface {
	SaveInvite(ctx context.Context, inv models.Invite) (models.Invite, error)
}

type Transactor interface {
	InTx(ctx context.Context, fn func(tx storage.Tx) error) error
}

type Confirmer interface {
	SendConfirmation(ctx context.Context, email string, userID int64, role models.Role, name, companyName string) bool
}

type Cooldown interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Registrar struct {
	log            *slog.Logger
	usrProvider    UserProvider
	usrSaver       UserSaver
	companies      CompanyProvider
	invites        InviteSaver
	tx             Transactor
	tokens         *token.Service
	hasher         Hasher
	confirmer      Confirmer
	cooldown       Cooldown
	resendCooldown time.Duration
	now            func() time.Time
}

type RegistrarDeps struct {
	UserProvider   UserProvider
	UserSaver      UserSaver
	Companies      CompanyProvider
	Invites        InviteSaver
	Tx             Transactor
	Tokens         *token.Service
	Hasher         Hasher
	Confirmer      Confirmer
	Cooldown       Cooldown
	ResendCooldown time.Duration
}

func NewRegistrar(log *slog.Logger, deps RegistrarDeps) *Registrar {
	return &Registrar{
		log:            log,
		usrProvider:    deps.UserProvider,
		usrSaver:       deps.UserSaver,
		companies:      deps.Companies,
		invites:        deps.Invites,
		tx:             deps.Tx,
		tokens:         deps.Tokens,
		hasher:         deps.Hasher,
		confirmer:      deps.Confirmer,
		cooldown:       deps.Cooldown,
		resendCooldown: deps.ResendCooldown,
		now:            time.Now,
	}
}

type CompanyRegistration struct {
	CompanyName string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Newsletter  bool
}

type CompanyResult struct {
	Company   models.Company
	Admin     models.User
	EmailSent bool
}

// * RegisterCompany создает компанию и ее администратора в одной транзакции.
// * Ошибка отправки письма не откатывает регистрацию и возвращается флагом EmailSent.
func (r *Registrar) RegisterCompany(ctx context.Context, in CompanyRegistration) (res CompanyResult, err error) {
	const op = "auth.RegisterCompany"

	log := r.log.With(slog.String("op", op))

	defer func() { metrics.Registration("company", err == nil) }()

	email := NormalizeEmail(in.Email)
	name := strings.Join(strings.Fields(in.CompanyName), " ")
	slug := Slugify(name)

	if slug == "" {
		return CompanyResult{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrValidation, "company name is empty"))
	}

	if _, err := r.usrProvider.UserByEmail(ctx, email); err == nil {
		log.Info("email already registered")
		return CompanyResult{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrConflict, "email already registered"))
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to check email", sl.Err(err))
		return CompanyResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.companies.CompanyBySlug(ctx, slug); err == nil {
		log.Info("company already exists", slog.String("slug", slug))
		return CompanyResult{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrConflict, "company already exists"))
	} else if !errors.Is(err, storage.ErrCompanyNotFound) {
		log.Error("failed to check company", sl.Err(err))
		return CompanyResult{}, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := r.hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return CompanyResult{}, fmt.Errorf("%s: %w", op, err)
	}

	admin := models.User{
		Email:      email,
		FirstName:  NormalizeName(in.FirstName),
		LastName:   NormalizeName(in.LastName),
		PassHash:   passHash,
		Role:       models.RoleAdmin,
		IsActive:   true,
		Newsletter: in.Newsletter,
	}

	var company models.Company

	err = r.tx.InTx(ctx, func(tx storage.Tx) error {
		var err error

		company, err = tx.CreateCompany(ctx, name, slug)
		if err != nil {
			return err
		}

		admin.CompanyID = company.ID

		admin.ID, err = tx.SaveUser(ctx, admin)

		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrCompanyExists) || errors.Is(err, storage.ErrUserExists) {
			log.Info("registration lost a uniqueness race", sl.Err(err))
			return CompanyResult{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrConflict, "company or email already exists"))
		}

		log.Error("failed to create company", sl.Err(err))
		return CompanyResult{}, fmt.Errorf("%s: %w", op, err)
	}

	sent := r.confirmer.SendConfirmation(ctx, admin.Email, admin.ID, admin.Role, admin.FullName(), company.Name)

	log.Info("company registered",
		slog.Int64("company_id", company.ID),
		slog.Int64("uid", admin.ID),
		slog.Bool("email_sent", sent),
	)

	return CompanyResult{Company: company, Admin: admin, EmailSent: sent}, nil
}

type InviteRequest struct {
	Email     *string
	Role      models.Role
	ExpiresAt *time.Time
}

// * CreateInvite выпускает одноразовый код приглашения в компанию администратора.
func (r *Registrar) CreateInvite(ctx context.Context, admin token.Claims, in InviteRequest) (models.Invite, error) {
	const op = "auth.CreateInvite"

	log := r.log.With(slog.String("op", op), slog.Int64("uid", admin.UserID))

	if _, err := identity.RequireRole(admin, models.RoleAdmin); err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	companyID, err := identity.RequireTenant(admin)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	if in.ExpiresAt != nil && !in.ExpiresAt.After(r.now()) {
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrInvalidExpiry, "expires_at must be in the future"))
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return models.Invite{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrValidation, "role must be admin or user"))
	}

	code, err := newInviteCode()
	if err != nil {
		log.Error("failed to generate invite code", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	var email *string
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		e := NormalizeEmail(*in.Email)
		email = &e
	}

	inv, err := r.invites.SaveInvite(ctx, models.Invite{
		CompanyID: companyID,
		Code:      code,
		Email:     email,
		Role:      role,
		ExpiresAt: in.ExpiresAt,
	})
	if err != nil {
		log.Error("failed to save invite", sl.Err(err))
		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("invite created", slog.Int64("company_id", companyID), slog.Int64("invite_id", inv.ID))

	return inv, nil
}

type InviteRegistration struct {
	Code      string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type InviteResult struct {
	User      models.User
	EmailSent bool
}

// * RegisterWithInvite потребляет приглашение и создает пользователя в той же транзакции.
func (r *Registrar) RegisterWithInvite(ctx context.Context, in InviteRegistration) (res InviteResult, err error) {
	const op = "auth.RegisterWithInvite"

	log := r.log.With(slog.String("op", op))

	defer func() { metrics.Registration("invite", err == nil) }()

	email := NormalizeEmail(in.Email)

	passHash, err := r.hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return InviteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Email:     email,
		FirstName: NormalizeName(in.FirstName),
		LastName:  NormalizeName(in.LastName),
		PassHash:  passHash,
		IsActive:  true,
	}

	err = r.tx.InTx(ctx, func(tx storage.Tx) error {
		inv, err := tx.InviteForUpdate(ctx, in.Code)
		if err != nil {
			if errors.Is(err, storage.ErrInviteNotFound) {
				return apperr.New(apperr.ErrInvalidInvite, "invalid invite code")
			}
			return err
		}

		if inv.IsUsed {
			return apperr.New(apperr.ErrInvalidInvite, "invite already used")
		}
		if inv.Expired(r.now()) {
			return apperr.New(apperr.ErrInviteExpired, "invite expired")
		}
		if inv.Email != nil && !strings.EqualFold(*inv.Email, email) {
			return apperr.New(apperr.ErrEmailMismatch, "email does not match invite")
		}

		if _, err := tx.UserByEmail(ctx, email); err == nil {
			return apperr.New(apperr.ErrConflict, "email already registered")
		} else if !errors.Is(err, storage.ErrUserNotFound) {
			return err
		}

		ok, err := tx.MarkInviteUsed(ctx, inv.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrInvalidInvite, "invite already used")
		}

		user.Role = inv.Role
		user.CompanyID = inv.CompanyID

		user.ID, err = tx.SaveUser(ctx, user)
		if errors.Is(err, storage.ErrUserExists) {
			return apperr.New(apperr.ErrConflict, "email already registered")
		}

		return err
	})
	if err != nil {
		if apperr.Kind(err) != nil {
			log.Info("invite registration rejected", sl.Err(err))
		} else {
			log.Error("failed to register with invite", sl.Err(err))
		}

		return InviteResult{}, fmt.Errorf("%s: %w", op, err)
	}

	var companyName string
	if c, err := r.companies.CompanyByID(ctx, user.CompanyID); err == nil {
		companyName = c.Name
	} else {
		log.Warn("failed to load company for confirmation email", sl.Err(err))
	}

	sent := r.confirmer.SendConfirmation(ctx, user.Email, user.ID, user.Role, user.FullName(), companyName)

	log.Info("user registered with invite",
		slog.Int64("uid", user.ID),
		slog.Int64("company_id", user.CompanyID),
		slog.Bool("email_sent", sent),
	)

	return InviteResult{User: user, EmailSent: sent}, nil
}

func (r *Registrar) ConfirmEmail(ctx context.Context, raw string) error {
	const op = "auth.ConfirmEmail"

	log := r.log.With(slog.String("op", op))

	claims, err := r.tokens.Verify(ctx, nil, raw, token.EmailConfirm)
	if err != nil {
		log.Info("confirmation token rejected", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := r.usrProvider.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrNotFound, "user not found"))
		}

		log.Error("failed to load user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.EmailVerified {
		return fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrConflict, "email already verified"))
	}

	if err := r.usrSaver.SetEmailVerified(ctx, user.ID); err != nil {
		if errors.Is(err, storage.ErrEmailAlreadyVerified) {
			return fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrConflict, "email already verified"))
		}

		log.Error("failed to update verification status", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.Int64("uid", user.ID))

	return nil
}

// * ResendConfirmation повторно отправляет письмо не чаще одного раза за resendCooldown.
func (r *Registrar) ResendConfirmation(ctx context.Context, email string) error {
	const op = "auth.ResendConfirmation"

	log := r.log.With(slog.String("op", op))

	email = NormalizeEmail(email)

	user, err := r.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrNotFound, "user not found"))
		}

		log.Error("failed to load user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.EmailVerified {
		return fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrConflict, "email already verified"))
	}

	key := fmt.Sprintf("resend_confirmation:%d", user.ID)

	acquired, err := r.cooldown.Acquire(ctx, key, r.resendCooldown)
	if err != nil {
		log.Error("failed to acquire resend cooldown", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !acquired {
		return fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrTooManyRequests, "confirmation email was sent recently"))
	}

	var companyName string
	if c, err := r.companies.CompanyByID(ctx, user.CompanyID); err == nil {
		companyName = c.Name
	}

	if !r.confirmer.SendConfirmation(ctx, user.Email, user.ID, user.Role, user.FullName(), companyName) {
		if err := r.cooldown.Release(ctx, key); err != nil {
			log.Warn("failed to release resend cooldown", sl.Err(err))
		}

		return fmt.Errorf("%s: %w", op, ErrConfirmationNotSent)
	}

	log.Info("confirmation email resent", slog.Int64("uid", user.ID))

	return nil
}

func newInviteCode() (string, error) {
	b := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
