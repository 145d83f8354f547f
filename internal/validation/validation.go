// Package validation はリクエストペイロードのフィールド制約を検証する。
// 制約は構造体タグ（validate:"..."）で宣言し、違反はJSONフィールド名ごとのメッセージ一覧として返す。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Problems はフィールド名から違反メッセージ一覧へのマッピング。
// 空の場合は妥当であることを示す。
type Problems map[string][]string

// Valid は違反がないかどうかを返す。
func (p Problems) Valid() bool {
	return len(p) == 0
}

// Add はフィールドに違反メッセージを追加する。
func (p Problems) Add(field, message string) {
	p[field] = append(p[field], message)
}

// Validator はgo-playground/validatorをラップしたバリデーター。
// *validator.Validateはスレッドセーフで、構造体情報をキャッシュするため1つを共有する。
type Validator struct {
	validate *validator.Validate
}

// New はJSONタグ名でフィールドを報告するValidatorを生成する。
// 空白のみの文字列を拒否するnotblankタグも登録する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validation: %v", err))
	}
	return &Validator{validate: v}
}

// Validate は構造体sの制約を検証し、違反をProblemsとして返す。
// sが構造体（またはそのポインタ）でない場合は"$"キーにメッセージを返す。
func (v *Validator) Validate(s any) Problems {
	problems := Problems{}

	err := v.validate.Struct(s)
	if err == nil {
		return problems
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		problems.Add("$", "The request body is not a valid object.")
		return problems
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			problems.Add(fe.Field(), message(fe))
		}
	}

	return problems
}

// jsonFieldName はjsonタグからフィールド名を取り出す。タグがない場合はGoのフィールド名を使う。
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

// message は違反したタグに対応するメッセージを返す。
func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "notblank":
		return fmt.Sprintf("The %s field must not be blank.", field)
	case "email":
		return fmt.Sprintf("The %s field is not a valid e-mail address.", field)
	case "max":
		return fmt.Sprintf("The %s field must be at most %s characters.", field, fe.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s field must match the %s field.", field, lowerFirst(fe.Param()))
	case "uuid":
		return fmt.Sprintf("The %s field must be a valid identifier.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
