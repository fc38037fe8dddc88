package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"student-registry/internal/apperr"
	"student-registry/internal/models"
	"student-registry/internal/repository"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by Seeder.Load
type SeedFile struct {
	Users []struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
	Students []struct {
		Name  string `yaml:"name"`
		Age   int    `yaml:"age"`
		Major string `yaml:"major"`
	} `yaml:"students"`
}

// Seeder loads initial users and students from a YAML file.
// Existing users are left untouched; students are only seeded into an empty registry.
type Seeder struct {
	users       *UserService
	studentRepo *repository.StudentRepository
}

func NewSeeder(users *UserService, studentRepo *repository.StudentRepository) *Seeder {
	return &Seeder{
		users:       users,
		studentRepo: studentRepo,
	}
}

// Load reads and applies the seed file at path
func (s *Seeder) Load(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	return s.Apply(ctx, &file)
}

func (s *Seeder) Apply(ctx context.Context, file *SeedFile) error {
	created := 0
	for _, u := range file.Users {
		role := models.RoleGuest
		if strings.TrimSpace(u.Role) != "" {
			r, err := AssignableRole(u.Role)
			if err != nil {
				return fmt.Errorf("seed user %q: %w", u.Username, err)
			}
			role = r
		}

		_, err := s.users.create(ctx, u.Username, u.Password, role)
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperr.ErrConflict):
			continue
		default:
			return fmt.Errorf("seed user %q: %w", u.Username, err)
		}
	}

	students := 0
	if len(file.Students) > 0 {
		existing, err := s.studentRepo.List(ctx, models.StudentFilter{})
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			for _, st := range file.Students {
				student := &models.Student{
					Name:  strings.TrimSpace(st.Name),
					Age:   st.Age,
					Major: strings.TrimSpace(st.Major),
				}
				if err := validateStudent(student); err != nil {
					return fmt.Errorf("seed student %q: %w", st.Name, err)
				}
				if err := s.studentRepo.Create(ctx, student); err != nil {
					return err
				}
				students++
			}
		}
	}

	slog.InfoContext(ctx, "seed applied", "users_created", created, "students_created", students)
	return nil
}
