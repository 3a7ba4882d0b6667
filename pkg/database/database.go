package database

import (
	"encoding/json"
	"fmt"
	"log"

	"excel_interview_backend/internal/config"
	"excel_interview_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.Question{},
		&model.InterviewSession{},
		&model.Answer{},
	)
	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedQuestionBank(db)

	return db, nil
}

// seedQuestionBank inserts a starter Excel question bank when the catalog is
// empty, so a fresh deployment can run interviews immediately. The AI
// generation endpoint extends the bank afterwards.
func seedQuestionBank(db *gorm.DB) {
	var count int64
	db.Model(&model.Question{}).Count(&count)
	if count > 0 {
		return
	}

	for _, q := range defaultQuestions() {
		db.Create(&q)
	}
	log.Println("Seeded default question bank")
}

func jsonList(items ...string) json.RawMessage {
	raw, _ := json.Marshal(items)
	return raw
}

func defaultQuestions() []model.Question {
	return []model.Question{
		{
			Category:        "Basic Formulas",
			Difficulty:      model.DifficultyBeginner,
			QuestionText:    "How would you add up all the values in cells A1 through A10?",
			QuestionType:    model.QuestionTypeFormula,
			CanonicalAnswer: "=SUM(A1:A10)",
			Alternatives:    jsonList("=SUM(A1:A10)", "SUM(A1:A10)", "=A1+A2+A3+A4+A5+A6+A7+A8+A9+A10"),
			Explanation:     "SUM is the canonical aggregation function; ranges beat chained additions for maintainability.",
			Hints:           jsonList("There is a function made for adding ranges.", "It takes a range like A1:A10.", "It starts with =SUM."),
			Tags:            "sum,aggregation",
		},
		{
			Category:        "Basic Formulas",
			Difficulty:      model.DifficultyBeginner,
			QuestionText:    "Explain the difference between relative and absolute cell references.",
			QuestionType:    model.QuestionTypeExplanation,
			CanonicalAnswer: "Relative references like A1 shift when a formula is copied; absolute references like $A$1 stay fixed. Mixed forms lock only the row or the column.",
			Alternatives:    jsonList(),
			Explanation:     "Reference semantics drive almost every fill-down error in real spreadsheets.",
			Hints:           jsonList("Think about what happens when you copy a formula down.", "The dollar sign changes the behavior."),
			Tags:            "references",
		},
		{
			Category:        "Lookup Functions",
			Difficulty:      model.DifficultyIntermediate,
			QuestionText:    "You have product IDs in column A and prices in column D of a table named Products. How do you fetch the price for the ID in cell G2?",
			QuestionType:    model.QuestionTypeFormula,
			CanonicalAnswer: "=VLOOKUP(G2,A:D,4,FALSE)",
			Alternatives:    jsonList("=VLOOKUP(G2,A:D,4,FALSE)", "=INDEX(D:D,MATCH(G2,A:A,0))", "=XLOOKUP(G2,A:A,D:D)"),
			Explanation:     "Exact-match lookup is the bread and butter of reporting sheets; INDEX/MATCH and XLOOKUP are accepted modern equivalents.",
			Hints:           jsonList("A lookup function fits here.", "Exact match needs the right final argument.", "VLOOKUP with FALSE, or INDEX/MATCH."),
			Tags:            "vlookup,index,match,xlookup",
		},
		{
			Category:        "Conditional Logic",
			Difficulty:      model.DifficultyIntermediate,
			QuestionText:    "How would you sum the values in B2:B100 only for rows where column A equals \"East\"?",
			QuestionType:    model.QuestionTypeFormula,
			CanonicalAnswer: "=SUMIF(A2:A100,\"East\",B2:B100)",
			Alternatives:    jsonList("=SUMIF(A2:A100,\"East\",B2:B100)", "=SUMIFS(B2:B100,A2:A100,\"East\")"),
			Explanation:     "Conditional aggregation; SUMIFS generalizes to multiple criteria.",
			Hints:           jsonList("There is a conditional variant of SUM.", "The criteria range and the sum range are separate arguments."),
			Tags:            "sumif,sumifs",
		},
		{
			Category:        "Data Analysis",
			Difficulty:      model.DifficultyIntermediate,
			QuestionText:    "Walk me through how you would use a pivot table to find the top-selling product per region.",
			QuestionType:    model.QuestionTypeExplanation,
			CanonicalAnswer: "Insert a pivot table over the sales data, put Region in rows, Product in rows beneath it or in columns, Sales in values as a sum, then sort values descending within each region or use a value filter for the top item.",
			Alternatives:    jsonList(),
			Explanation:     "Pivot fluency separates reporting users from formula-only users.",
			Hints:           jsonList("Start from Insert > PivotTable.", "Think about which fields go to rows and values.", "Sorting or top-N value filters finish the job."),
			Tags:            "pivot,analysis",
		},
		{
			Category:        "Text Functions",
			Difficulty:      model.DifficultyAdvanced,
			QuestionText:    "Cell A1 contains \"smith, john\". Build a formula that returns \"John Smith\".",
			QuestionType:    model.QuestionTypeFormula,
			CanonicalAnswer: "=PROPER(MID(A1,FIND(\",\",A1)+2,LEN(A1))&\" \"&LEFT(A1,FIND(\",\",A1)-1))",
			Alternatives:    jsonList("=PROPER(TRIM(MID(A1,FIND(\",\",A1)+1,LEN(A1)))&\" \"&LEFT(A1,FIND(\",\",A1)-1))", "=PROPER(TEXTAFTER(A1,\", \")&\" \"&TEXTBEFORE(A1,\",\"))"),
			Explanation:     "String surgery combining FIND, MID, LEFT and PROPER, or the newer TEXTBEFORE/TEXTAFTER pair.",
			Hints:           jsonList("Split on the comma first.", "FIND locates the comma position.", "PROPER fixes the casing at the end."),
			Tags:            "text,mid,find,proper",
		},
		{
			Category:        "Array Formulas",
			Difficulty:      model.DifficultyAdvanced,
			QuestionText:    "Explain what a dynamic array spill is and name a situation where FILTER beats a classic formula approach.",
			QuestionType:    model.QuestionTypeExplanation,
			CanonicalAnswer: "A spill is a single formula whose result expands into neighboring cells automatically. FILTER returns every matching row in one step, which replaces error-prone array-entered IF/SMALL constructions for multi-row extraction.",
			Alternatives:    jsonList(),
			Explanation:     "Dynamic arrays changed idiomatic modern Excel; extraction patterns are the clearest win.",
			Hints:           jsonList("Think of formulas whose output covers several cells.", "FILTER returns many rows from one formula."),
			Tags:            "arrays,filter,spill",
		},
	}
}
