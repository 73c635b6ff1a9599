package validator

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	val "github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	zhTranslations "github.com/go-playground/validator/v10/translations/zh"
)

// gin binding validator的翻译器初始化
// 校验失败的提示里带上字段名，方便前端直接展示

var (
	once  sync.Once
	trans ut.Translator
)

// LazyInitGinValidator 按语言初始化翻译器，重复调用只生效一次
func LazyInitGinValidator(language string) {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*val.Validate)
		if !ok {
			return
		}
		enLoc := en.New()
		zhLoc := zh.New()
		uni := ut.New(enLoc, enLoc, zhLoc)

		switch strings.ToLower(language) {
		case "zh", "zh-cn":
			trans, _ = uni.GetTranslator("zh")
			_ = zhTranslations.RegisterDefaultTranslations(v, trans)
		default:
			trans, _ = uni.GetTranslator("en")
			_ = enTranslations.RegisterDefaultTranslations(v, trans)
		}
	})
}

// Translate 把校验错误转成按字段命名的提示信息
func Translate(err error) string {
	if err == nil {
		return ""
	}
	errs, ok := err.(val.ValidationErrors)
	if !ok || trans == nil {
		return err.Error()
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Translate(trans))
	}
	return strings.Join(parts, "; ")
}
