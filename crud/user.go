package crud

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"conduit/domain"
	"conduit/errs"
)

// UserService manages Users. It also contains the part of the
// authentication system that handles password hashing and verification.
// Token minting lives in the auth package, request handling in http.
// It implements the domain.UserService interface.
type UserService struct {
	userValidator
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userGorm.
// Otherwise, it returns the error of the validation that has failed.
type userValidator struct {
	pepper     string
	emailRegex *regexp.Regexp
	userGorm
}

// userGorm runs CRUD operations on the database using incoming User data.
// It assumes that data has been validated.
type userGorm struct {
	db *gorm.DB
}

// NewUserService returns an instance of UserService.
func NewUserService(db *gorm.DB, pepper string) *UserService {
	return &UserService{
		userValidator{
			pepper:     pepper,
			emailRegex: regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,16}$`),
			userGorm: userGorm{
				db: db,
			},
		},
	}
}

// Ensure the UserService struct properly implements the domain.UserService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.UserService = &UserService{}

// Authenticate checks a submitted email address and password for existence and correctness.
func (uv *userValidator) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	found, err := uv.userGorm.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil, errs.Errorf(errs.EINVALID, "The email address does not exist in our database.")
		}
		return nil, err
	}

	// Append the predefined pepper to the submitted password, and compare
	// the result to the password hash stored in the user's record.
	err = bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password+uv.pepper))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errs.Errorf(errs.EINVALID, "The password is incorrect.")
		}
		return nil, err
	}
	return found, nil
}

// CreateUser runs validations needed for creating new User database records.
func (uv *userValidator) CreateUser(ctx context.Context, user *domain.User) error {
	err := runUserValFns(user,
		uv.passwordRequired,
		uv.passwordMinLength,
		uv.passwordBcrypt,
		uv.passwordHashRequired,
		uv.usernameRequired,
		uv.usernameIsAvail(ctx),
		uv.emailNormalize,
		uv.emailRequired,
		uv.emailFormat,
		uv.emailIsAvail(ctx))
	if err != nil {
		return err
	}
	return uv.userGorm.Create(ctx, user)
}

// UpdateUser runs validations needed for updating a User record in the
// database. It will hash a password if one is provided (and will not
// return an error if it's not).
func (uv *userValidator) UpdateUser(ctx context.Context, user *domain.User) error {
	err := runUserValFns(user,
		uv.passwordMinLength,
		uv.passwordBcrypt,
		uv.passwordHashRequired,
		uv.usernameRequired,
		uv.emailNormalize,
		uv.emailRequired,
		uv.emailFormat)
	if err != nil {
		return err
	}
	return uv.userGorm.Update(ctx, user)
}

// runUserValFns runs any number of functions of type userValFn on the passed in User object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runUserValFns(user *domain.User, fns ...userValFn) error {
	for _, fn := range fns {
		if err := fn(user); err != nil {
			return err
		}
	}
	return nil
}

// A userValFn is any function that takes in a pointer to a domain.User object and returns an error.
type userValFn func(user *domain.User) error

// passwordRequired makes sure an incoming password is not empty.
func (uv *userValidator) passwordRequired(user *domain.User) error {
	if user.Password == "" {
		return errs.Errorf(errs.EINVALID, "A password is required.")
	}
	return nil
}

// passwordMinLength makes sure an incoming password has at least 8 characters.
func (uv *userValidator) passwordMinLength(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	if utf8.RuneCountInString(user.Password) < 8 {
		return errs.Errorf(errs.EINVALID, "The password must be at least 8 characters long.")
	}
	return nil
}

// passwordBcrypt hashes an incoming password with bcrypt after appending
// the pepper, then clears the plain text.
func (uv *userValidator) passwordBcrypt(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password+uv.pepper), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.Password = ""
	return nil
}

// passwordHashRequired makes sure a password hash is set before the record is stored.
func (uv *userValidator) passwordHashRequired(user *domain.User) error {
	if user.PasswordHash == "" {
		return errs.Errorf(errs.EINVALID, "A password is required.")
	}
	return nil
}

// usernameRequired makes sure an incoming username is not empty.
func (uv *userValidator) usernameRequired(user *domain.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return errs.Errorf(errs.EINVALID, "A username is required.")
	}
	return nil
}

// usernameIsAvail makes sure an incoming username is not already taken.
func (uv *userValidator) usernameIsAvail(ctx context.Context) userValFn {
	return func(user *domain.User) error {
		existing, err := uv.userGorm.ByUsername(ctx, user.Username)
		if err != nil {
			if errs.ErrorCode(err) == errs.ENOTFOUND {
				return nil
			}
			return err
		}
		if existing.ID != user.ID {
			return errs.Errorf(errs.EINVALID, "That username is already taken.")
		}
		return nil
	}
}

// emailNormalize trims and lowercases an incoming email address.
func (uv *userValidator) emailNormalize(user *domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return nil
}

// emailRequired makes sure an incoming email address is not empty.
func (uv *userValidator) emailRequired(user *domain.User) error {
	if user.Email == "" {
		return errs.Errorf(errs.EINVALID, "An email address is required.")
	}
	return nil
}

// emailFormat makes sure an incoming email address looks like an email address.
func (uv *userValidator) emailFormat(user *domain.User) error {
	if !uv.emailRegex.MatchString(user.Email) {
		return errs.Errorf(errs.EINVALID, "The email address is not valid.")
	}
	return nil
}

// emailIsAvail makes sure an incoming email address is not already taken.
func (uv *userValidator) emailIsAvail(ctx context.Context) userValFn {
	return func(user *domain.User) error {
		existing, err := uv.userGorm.ByEmail(ctx, user.Email)
		if err != nil {
			if errs.ErrorCode(err) == errs.ENOTFOUND {
				return nil
			}
			return err
		}
		if existing.ID != user.ID {
			return errs.Errorf(errs.EINVALID, "That email address is already taken.")
		}
		return nil
	}
}

// ByID retrieves a single User by ID.
func (ug *userGorm) ByID(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
		}
		return nil, err
	}
	return &user, nil
}

// ByEmail retrieves a single User by email address.
func (ug *userGorm) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
		}
		return nil, err
	}
	return &user, nil
}

// ByUsername retrieves a single User by username.
func (ug *userGorm) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user %q does not exist.", username)
		}
		return nil, err
	}
	return &user, nil
}

// Create stores the data from the User object in a new database record.
func (ug *userGorm) Create(ctx context.Context, user *domain.User) error {
	return ug.db.WithContext(ctx).Create(user).Error
}

// Update persists the User object's fields to its database record.
func (ug *userGorm) Update(ctx context.Context, user *domain.User) error {
	return ug.db.WithContext(ctx).Save(user).Error
}
