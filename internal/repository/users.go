package repository

import (
	"context"

	"example.com/ecoguard/internal/models"
)

func (r *repo) CreateUser(ctx context.Context, user *models.User) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return translate(gormDB.Create(user).Error)
}

func (r *repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := gormDB.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *repo) SaveUser(ctx context.Context, user *models.User) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return translate(gormDB.Save(user).Error)
}

func (r *repo) ListUsers(ctx context.Context) ([]*models.User, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var users []*models.User
	if err := gormDB.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
