package database

import (
	"testing"

	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/internal/model"

	"gorm.io/datatypes"
)

func TestMigrateFreshDatabase(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{Driver: DriverSQLite, Path: "file:migrate_fresh?mode=memory&cache=shared", LogLevel: "silent"}, true)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	version, err := CurrentSchemaVersion(db)
	if err != nil || version != LatestSchemaVersion() || version != 6 {
		t.Fatalf("schema version = %d, %v", version, err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate should be a no-op: %v", err)
	}
	var rows int64
	db.Model(&model.SchemaVersion{}).Count(&rows)
	if rows != 6 {
		t.Fatalf("schema_versions rows = %d, want 6", rows)
	}
	for _, table := range []string{"questions", "exam_history_records", "progresses", "question_asks", "file_folders", "preferences"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestMigrateLegacyProgress(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{Driver: DriverSQLite, Path: "file:migrate_legacy?mode=memory&cache=shared", LogLevel: "silent"}, true)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	// 模拟 v5 的数据：按下标保存的选择
	legacy := model.Progress{
		SessionKey:     "practice:old.xlsx",
		Mode:           model.ModePractice,
		QuestionOrder:  datatypes.JSONSlice[uint]{11, 7, 30},
		LegacySelected: datatypes.JSONSlice[[]int]{{1}, {}, {0, 2}},
	}
	if err := db.Create(&legacy).Error; err != nil {
		t.Fatalf("create legacy progress: %v", err)
	}
	if err := db.Where("version = ?", 6).Delete(&model.SchemaVersion{}).Error; err != nil {
		t.Fatalf("rewind schema: %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	var p model.Progress
	if err := db.Where("session_key = ?", "practice:old.xlsx").First(&p).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if len(p.LegacySelected) != 0 {
		t.Errorf("legacy selections should be cleared, got %v", p.LegacySelected)
	}
	if st := p.StateOf(11); len(st.Selected) != 1 || st.Selected[0] != 1 || !st.ShowResult {
		t.Errorf("state of 11 = %+v", st)
	}
	if st := p.StateOf(30); len(st.Selected) != 2 {
		t.Errorf("state of 30 = %+v", st)
	}
	if st := p.StateOf(7); len(st.Selected) != 0 {
		t.Errorf("empty legacy selection should stay unanswered, got %+v", st)
	}
}

func TestConvertLegacySelections(t *testing.T) {
	existing := model.AnswerStates{5: {Selected: []int{3}, Note: "keep"}}
	got := ConvertLegacySelections([]uint{4, 5}, [][]int{{0}, {1}, {2}}, existing)

	if len(got) != 2 {
		t.Fatalf("states = %+v", got)
	}
	if got[4].Selected[0] != 0 {
		t.Errorf("state of 4 = %+v", got[4])
	}
	if got[5].Note != "keep" || got[5].Selected[0] != 3 {
		t.Errorf("existing id keyed state should win, got %+v", got[5])
	}
}
