package repository

import (
	"context"

	"quiz_bank_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FolderRepository struct {
	DB *gorm.DB
}

func NewFolderRepository(db *gorm.DB) *FolderRepository {
	return &FolderRepository{DB: db}
}

func (r *FolderRepository) Create(ctx context.Context, f *model.Folder) error {
	return r.DB.WithContext(ctx).Create(f).Error
}

func (r *FolderRepository) FindByID(ctx context.Context, id uint) (*model.Folder, error) {
	var f model.Folder
	if err := r.DB.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FolderRepository) FindByName(ctx context.Context, name string) (*model.Folder, error) {
	var f model.Folder
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FolderRepository) Rename(ctx context.Context, id uint, name string) error {
	res := r.DB.WithContext(ctx).Model(&model.Folder{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除文件夹及其文件映射，题目本身不受影响
func (r *FolderRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("folder_id = ?", id).Delete(&model.FileFolder{}).Error; err != nil {
			return err
		}
		return deleteOne(tx, &model.Folder{}, id)
	})
}

// List 返回全部文件夹并填充其中的文件名
func (r *FolderRepository) List(ctx context.Context) ([]model.Folder, error) {
	var folders []model.Folder
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&folders).Error; err != nil {
		return nil, err
	}
	var mappings []model.FileFolder
	if err := r.DB.WithContext(ctx).Order("file_name ASC").Find(&mappings).Error; err != nil {
		return nil, err
	}
	files := make(map[uint][]string)
	for _, m := range mappings {
		files[m.FolderID] = append(files[m.FolderID], m.FileName)
	}
	for i := range folders {
		folders[i].Files = files[folders[i].ID]
		if folders[i].Files == nil {
			folders[i].Files = []string{}
		}
	}
	return folders, nil
}

// Assign 一个文件只属于一个文件夹，重复分配时覆盖
func (r *FolderRepository) Assign(ctx context.Context, fileName string, folderID uint) error {
	m := model.FileFolder{FileName: fileName, FolderID: folderID}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"folder_id"}),
	}).Create(&m).Error
}

func (r *FolderRepository) Unassign(ctx context.Context, fileName string) error {
	return r.DB.WithContext(ctx).Where("file_name = ?", fileName).Delete(&model.FileFolder{}).Error
}
