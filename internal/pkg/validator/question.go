package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/futig/rag-backend/internal/entity"
)

const defaultMaxQuestionChars = 4000

// ValidateQuestion checks the question body. top_k range is checked by the usecase,
// here only an explicit non-positive value is rejected.
func (v *Validator) ValidateQuestion(req *entity.QuestionRequest) error {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return fmt.Errorf("%w: question", entity.ErrMissingField)
	}
	if n := utf8.RuneCountInString(question); n > v.maxQuestion {
		return fmt.Errorf("%w: question is %d characters (max %d)", entity.ErrInvalidParameter, n, v.maxQuestion)
	}
	if req.TopK != nil && *req.TopK < 1 {
		return fmt.Errorf("%w: top_k must be positive, got %d", entity.ErrInvalidParameter, *req.TopK)
	}
	return nil
}
