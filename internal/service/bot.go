package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"firestocks/internal/consts"
	"firestocks/internal/dao"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"
	"firestocks/pkg/logger"
	"firestocks/pkg/telegram"
)

// BotService 处理Telegram bot的inbound更新：命令与设置面板回调
// webhook先回200再处理，所以这里所有错误只记日志不上抛
type BotService struct {
	subscriberDao dao.SubscriberDao
	telegram      telegram.Sender
}

func NewBotService(subscriberDao dao.SubscriberDao, tg telegram.Sender) *BotService {
	return &BotService{subscriberDao: subscriberDao, telegram: tg}
}

// HandleUpdate 分发一条Telegram更新，botID来自webhook路径
func (s *BotService) HandleUpdate(ctx context.Context, botID int64, update *model.TelegramUpdate) {
	bot, err := s.subscriberDao.GetBot(ctx, botID)
	if err != nil {
		logger.Warnf("telegram update for unknown bot %d", botID)
		return
	}

	switch {
	case update.Message != nil:
		s.handleMessage(ctx, bot, update.Message)
	case update.CallbackQuery != nil:
		s.handleCallback(ctx, bot, update.CallbackQuery)
	}
}

func (s *BotService) handleMessage(ctx context.Context, bot *entity.Bot, msg *model.TelegramMessage) {
	cmd := strings.TrimSpace(msg.Text)
	// 群里@机器人的形式 /start@my_bot
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start", "/subscribe":
		s.subscribe(ctx, bot, msg)
	case "/stop", "/unsubscribe":
		s.unsubscribe(ctx, bot, msg.Chat.ID)
	case "/settings":
		s.sendSettings(ctx, bot, msg.Chat.ID)
	default:
		s.reply(ctx, bot, msg.Chat.ID, "可用命令：/start 订阅，/stop 退订，/settings 通知设置")
	}
}

func (s *BotService) subscribe(ctx context.Context, bot *entity.Bot, msg *model.TelegramMessage) {
	sub := &entity.Subscriber{
		BotID:        bot.ID,
		ChatID:       msg.Chat.ID,
		IsSubscribed: true,
		// 首次订阅默认全部类型打开
		NotifyBroadcast:  true,
		NotifyNewPost:    true,
		NotifyResolution: true,
	}
	if msg.From != nil {
		sub.Username = msg.From.Username
		sub.DisplayName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}
	if err := s.subscriberDao.Upsert(ctx, sub); err != nil {
		logger.Errorf("subscribe bot=%d chat=%d failed: %v", bot.ID, msg.Chat.ID, err)
		return
	}

	markup := &telegram.ReplyMarkup{
		InlineKeyboard: [][]telegram.InlineButton{
			{{Text: "通知设置", CallbackData: fmt.Sprintf("settings_%d", bot.ID)}},
		},
	}
	text := fmt.Sprintf("订阅成功！你将收到 *%s* 的预测广播。", bot.Name)
	if _, err := s.telegram.SendMessageWithKeyboard(ctx, bot.Token, msg.Chat.ID, text, markup); err != nil {
		logger.Warnf("send welcome bot=%d chat=%d failed: %v", bot.ID, msg.Chat.ID, err)
	}
}

func (s *BotService) unsubscribe(ctx context.Context, bot *entity.Bot, chatID int64) {
	if err := s.subscriberDao.SetSubscribed(ctx, bot.ID, chatID, false); err != nil {
		logger.Errorf("unsubscribe bot=%d chat=%d failed: %v", bot.ID, chatID, err)
		return
	}
	s.reply(ctx, bot, chatID, "已退订，随时可以用 /start 重新订阅。")
}

// sendSettings 按当前开关状态渲染设置面板
func (s *BotService) sendSettings(ctx context.Context, bot *entity.Bot, chatID int64) {
	sub, err := s.subscriberDao.GetByChat(ctx, bot.ID, chatID)
	if err != nil {
		s.reply(ctx, bot, chatID, "请先 /start 订阅。")
		return
	}

	markup := &telegram.ReplyMarkup{
		InlineKeyboard: [][]telegram.InlineButton{
			{toggleButton("广播", consts.NotifyTypeBroadcast, sub.NotifyBroadcast, bot.ID)},
			{toggleButton("新预测", consts.NotifyTypeNewPost, sub.NotifyNewPost, bot.ID)},
			{toggleButton("到价/止损", consts.NotifyTypeResolution, sub.NotifyResolution, bot.ID)},
		},
	}
	if _, err := s.telegram.SendMessageWithKeyboard(ctx, bot.Token, chatID, "通知设置（点击切换）", markup); err != nil {
		logger.Warnf("send settings bot=%d chat=%d failed: %v", bot.ID, chatID, err)
	}
}

// handleCallback 处理设置面板的按钮回调
// data格式：settings_<botId> / toggle_<type>_<botId>_<0|1>
func (s *BotService) handleCallback(ctx context.Context, bot *entity.Bot, cb *model.TelegramCallbackQuery) {
	defer func() {
		if err := s.telegram.AnswerCallbackQuery(ctx, bot.Token, cb.ID, ""); err != nil {
			logger.Debugf("answer callback %s failed: %v", cb.ID, err)
		}
	}()

	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(cb.Data, "settings_"):
		s.sendSettings(ctx, bot, chatID)
	// 旧版欢迎消息里的订阅按钮还留在聊天记录里，继续兼容
	case strings.HasPrefix(cb.Data, "subscribe_"):
		if err := s.subscriberDao.SetSubscribed(ctx, bot.ID, chatID, true); err != nil {
			logger.Errorf("resubscribe bot=%d chat=%d failed: %v", bot.ID, chatID, err)
			return
		}
		s.reply(ctx, bot, chatID, "已重新订阅。")
	case strings.HasPrefix(cb.Data, "unsubscribe_"):
		s.unsubscribe(ctx, bot, chatID)
	case strings.HasPrefix(cb.Data, "toggle_"):
		parts := strings.Split(cb.Data, "_")
		if len(parts) != 4 {
			logger.Warnf("malformed callback data %q", cb.Data)
			return
		}
		notifyType, enable := callbackNotifyType(parts[1]), parts[3] == "1"
		if notifyType == "" {
			logger.Warnf("unknown notify type in callback %q", cb.Data)
			return
		}
		if err := s.subscriberDao.SetNotifyFlag(ctx, bot.ID, chatID, notifyType, enable); err != nil {
			logger.Errorf("toggle %s bot=%d chat=%d failed: %v", notifyType, bot.ID, chatID, err)
			return
		}
		// 重新渲染面板反映最新状态
		s.sendSettings(ctx, bot, chatID)
	default:
		logger.Debugf("unhandled callback data %q", cb.Data)
	}
}

func (s *BotService) reply(ctx context.Context, bot *entity.Bot, chatID int64, text string) {
	if _, err := s.telegram.SendMessage(ctx, bot.Token, chatID, text); err != nil {
		logger.Warnf("reply bot=%d chat=%d failed: %v", bot.ID, chatID, err)
	}
}

func toggleButton(label, notifyType string, enabled bool, botID int64) telegram.InlineButton {
	state, next := "✅", "0"
	if !enabled {
		state, next = "🔕", "1"
	}
	return telegram.InlineButton{
		Text:         fmt.Sprintf("%s %s", state, label),
		CallbackData: fmt.Sprintf("toggle_%s_%s_%s", callbackTypeKey(notifyType), strconv.FormatInt(botID, 10), next),
	}
}

// callback data里的类型用短key，避免超过Telegram 64字节限制
func callbackTypeKey(notifyType string) string {
	switch notifyType {
	case consts.NotifyTypeBroadcast:
		return "bc"
	case consts.NotifyTypeNewPost:
		return "np"
	case consts.NotifyTypeResolution:
		return "rs"
	}
	return notifyType
}

func callbackNotifyType(key string) string {
	switch key {
	case "bc":
		return consts.NotifyTypeBroadcast
	case "np":
		return consts.NotifyTypeNewPost
	case "rs":
		return consts.NotifyTypeResolution
	}
	return ""
}
