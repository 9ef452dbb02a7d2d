package database

import (
	"fmt"
	"time"

	"quiz_bank_backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type migration struct {
	version int
	name    string
	apply   func(tx *gorm.DB) error
}

// 与移动端保持一致的六个 schema 版本
var migrations = []migration{
	{1, "questions, wrong answers, favorites, practice history", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&model.Question{}, &model.WrongAnswer{}, &model.Favorite{}, &model.HistoryRecord{})
	}},
	{2, "exam history", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&model.ExamHistoryRecord{})
	}},
	{3, "practice/exam progress", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&model.Progress{})
	}},
	{4, "notes, ai analysis and ask caches", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&model.QuestionNote{}, &model.QuestionAnalysis{}, &model.QuestionAsk{})
	}},
	{5, "folders and preferences", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&model.Folder{}, &model.FileFolder{}, &model.Preference{})
	}},
	{6, "id keyed progress state", migrateProgressToIDKeyed},
}

// LatestSchemaVersion 当前代码对应的 schema 版本
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate 按版本顺序执行尚未应用的迁移
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.SchemaVersion{}); err != nil {
		return err
	}

	current, err := CurrentSchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.apply(tx); err != nil {
				return err
			}
			return tx.Create(&model.SchemaVersion{Version: m.version, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return fmt.Errorf("migration v%d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func CurrentSchemaVersion(db *gorm.DB) (int, error) {
	var version int
	err := db.Model(&model.SchemaVersion{}).Select("COALESCE(MAX(version), 0)").Scan(&version).Error
	return version, err
}

// migrateProgressToIDKeyed 把 v5 按列表下标保存的选项转换为按题目 ID 保存的状态
func migrateProgressToIDKeyed(tx *gorm.DB) error {
	if err := tx.AutoMigrate(&model.Progress{}); err != nil {
		return err
	}

	var rows []model.Progress
	if err := tx.Where("legacy_selected IS NOT NULL AND legacy_selected <> 'null'").Find(&rows).Error; err != nil {
		return err
	}

	for i := range rows {
		p := &rows[i]
		states := ConvertLegacySelections(p.QuestionOrder, p.LegacySelected, p.States.Data())
		p.States = datatypes.NewJSONType(states)
		p.LegacySelected = nil
		if err := tx.Save(p).Error; err != nil {
			return err
		}
	}
	return nil
}

// ConvertLegacySelections 以固定题序为桥梁把下标映射到题目 ID；已有的 ID 状态优先
func ConvertLegacySelections(order []uint, legacy [][]int, existing model.AnswerStates) model.AnswerStates {
	states := make(model.AnswerStates, len(existing)+len(legacy))
	for pos, selected := range legacy {
		if pos >= len(order) || len(selected) == 0 {
			continue
		}
		states[order[pos]] = model.AnswerState{
			Selected:   append([]int(nil), selected...),
			ShowResult: true,
		}
	}
	for id, st := range existing {
		states[id] = st
	}
	return states
}
