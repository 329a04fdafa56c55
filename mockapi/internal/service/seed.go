package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	"github.com/Astemirdum/library-portal/mockapi/internal/repository"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
)

const (
	DemoLibrarianEmail    = "admin@lib.com"
	DemoLibrarianPassword = "Admin1234"
	DemoReaderEmail       = "reader@lib.com"
	DemoReaderPassword    = "Reader1234"
)

func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }

// Seed fills an empty store with the demo catalog and accounts. A store that
// already has users is left alone.
func (s *Service) Seed(ctx context.Context) error {
	adminHash, err := bcrypt.GenerateFromPassword([]byte(DemoLibrarianPassword), s.bcryptCost)
	if err != nil {
		return errors.Wrap(err, "hash")
	}
	readerHash, err := bcrypt.GenerateFromPassword([]byte(DemoReaderPassword), s.bcryptCost)
	if err != nil {
		return errors.Wrap(err, "hash")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seeded := false
	err = s.repo.Update(ctx, func(q kvstore.Querier) error {
		users, err := repository.Users.Load(ctx, q)
		if err != nil || len(users) > 0 {
			return err
		}
		now := s.now().UTC()
		users = []model.User{
			{ID: 1, Email: DemoLibrarianEmail, PasswordHash: string(adminHash), Role: model.RoleLibrarian, CreatedAt: now},
			{ID: 2, Email: DemoReaderEmail, PasswordHash: string(readerHash), Role: model.RoleUser, CreatedAt: now},
		}
		authors := []model.Author{
			{ID: 1, Surname: "Martin", Name: "Robert", MiddleName: strPtr("C."), BookIDs: []int64{1}},
			{ID: 2, Surname: "Gamma", Name: "Erich", BookIDs: []int64{2}},
			{ID: 3, Surname: "Helm", Name: "Richard", BookIDs: []int64{2}},
			{ID: 4, Surname: "Johnson", Name: "Ralph", BookIDs: []int64{2}},
			{ID: 5, Surname: "Vlissides", Name: "John", BookIDs: []int64{2}},
			{ID: 6, Surname: "Hunt", Name: "Andrew", BookIDs: []int64{3}},
			{ID: 7, Surname: "Thomas", Name: "David", BookIDs: []int64{3}},
			{ID: 8, Surname: "Булгаков", Name: "Михаил", MiddleName: strPtr("Афанасьевич"), BookIDs: []int64{4}},
		}
		books := []model.Book{
			{
				ID: 1, Title: "Clean Code", AuthorIDs: []int64{1}, LibraryIDs: []int64{1, 2},
				PublishingHouse: "Prentice Hall", PublicationYear: "2008-08-01",
				Genre: "Software", Language: "en", ISBN: "9780132350884",
			},
			{
				ID: 2, Title: "Design Patterns", AuthorIDs: []int64{2, 3, 4, 5}, LibraryIDs: []int64{1},
				PublishingHouse: "Addison-Wesley", PublicationYear: "1994-10-21",
				Genre: "Software", Language: "en", ISBN: "9780201633610",
			},
			{
				ID: 3, Title: "The Pragmatic Programmer", AuthorIDs: []int64{6, 7}, LibraryIDs: []int64{1},
				PublishingHouse: "Addison-Wesley", PublicationYear: "1999-10-20",
				Genre: "Software", Language: "en", ISBN: "9780201616224",
			},
			{
				ID: 4, Title: "Мастер и Маргарита", AuthorIDs: []int64{8}, LibraryIDs: []int64{1, 2},
				PublishingHouse: "Художественная литература", PublicationYear: "1967-01-01",
				Genre: "Fiction", Language: "ru", ISBN: "9785170906307",
			},
		}
		libraries := []model.Library{
			{
				ID: 1, StaffNumber: 12, Status: model.LibraryActive, BookIDs: []int64{1, 2, 3, 4},
				Address: map[string]any{"country": "Россия", "city": "Москва", "street": "ул. Тверская", "house": "1"},
			},
			{
				ID: 2, StaffNumber: 4, Status: model.LibraryClosed, BookIDs: []int64{1, 4},
				Address: map[string]any{"city": "Санкт-Петербург", "street": "Невский пр.", "house": "28"},
			},
		}
		librarians := []model.Librarian{{ID: 1, UserID: 1, LibraryID: int64Ptr(1)}}
		inventories := []model.InventoryRecord{
			{ID: 1, BookID: 1, LibraryID: 1, TotalCopies: 4},
			{ID: 2, BookID: 1, LibraryID: 2, TotalCopies: 2},
			{ID: 3, BookID: 2, LibraryID: 1, TotalCopies: 4},
			{ID: 4, BookID: 3, LibraryID: 1, TotalCopies: 5},
			{ID: 5, BookID: 4, LibraryID: 1, TotalCopies: 5},
			{ID: 6, BookID: 4, LibraryID: 2, TotalCopies: 3},
		}

		if err := repository.Users.Save(ctx, q, users); err != nil {
			return err
		}
		if err := repository.Authors.Save(ctx, q, authors); err != nil {
			return err
		}
		if err := repository.Books.Save(ctx, q, books); err != nil {
			return err
		}
		if err := repository.Libraries.Save(ctx, q, libraries); err != nil {
			return err
		}
		if err := repository.Librarians.Save(ctx, q, librarians); err != nil {
			return err
		}
		if err := repository.Inventories.Save(ctx, q, inventories); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	if err != nil {
		return err
	}
	if seeded {
		s.log.Info("demo data seeded", zap.String("librarian", DemoLibrarianEmail))
	}
	return nil
}
