package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todolist/internal/model"
	"todolist/internal/repository"
	"todolist/internal/service"
	"todolist/internal/store"
	"todolist/internal/validation"
)

const (
	cbTogglePrefix  = "toggle:"
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
)

const (
	menuLabelList  = "📋 List"
	menuLabelStats = "📊 Stats"
	menuLabelHelp  = "ℹ️ Help"
	maxListed      = 40
)

// sender is the part of the Bot API used to answer users.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services. Every chat gets its own store,
// so filters and the listed order are kept per chat.
type Bot struct {
	api         *tgbotapi.BotAPI
	out         sender
	todos       *service.TodoService
	validator   *validation.Validator
	subscribers *repository.SubscriberRepository
	reports     *service.ReportService
	now         func() time.Time

	mu     sync.Mutex
	stores map[int64]*store.Store
}

func New(token string, todos *service.TodoService, validator *validation.Validator, subscribers *repository.SubscriberRepository, reports *service.ReportService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, todos, validator, subscribers, reports)
	b.api = api
	return b, nil
}

func newBot(out sender, todos *service.TodoService, validator *validation.Validator, subscribers *repository.SubscriberRepository, reports *service.ReportService) *Bot {
	return &Bot{
		out:         out,
		todos:       todos,
		validator:   validator,
		subscribers: subscribers,
		reports:     reports,
		now:         func() time.Time { return time.Now().UTC() },
		stores:      make(map[int64]*store.Store),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	switch strings.ToLower(strings.TrimSpace(msg.Text)) {
	case strings.ToLower(menuLabelList):
		return b.sendTodoList(ctx, msg.Chat.ID)
	case strings.ToLower(menuLabelStats):
		return b.handleStats(ctx, msg.Chat.ID)
	case strings.ToLower(menuLabelHelp):
		return b.handleHelp(msg.Chat.ID)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Use /add to create a todo or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "stop":
		if err := b.subscribers.Unsubscribe(ctx, chatID); err != nil {
			return err
		}
		return b.sendText(chatID, "🔕 Reports are off. Send /start to turn them back on.")
	case "help":
		return b.handleHelp(chatID)
	case "list":
		return b.sendTodoList(ctx, chatID)
	case "add":
		return b.handleAdd(ctx, chatID, args)
	case "done":
		return b.handleToggle(ctx, chatID, args)
	case "delete":
		return b.handleDelete(ctx, chatID, args)
	case "move":
		return b.handleMove(ctx, chatID, args)
	case "rename", "priority", "due":
		return b.handleEdit(ctx, chatID, msg.Command(), args)
	case "search", "status", "prio", "sort", "reset":
		return b.handleFilter(ctx, chatID, msg.Command(), args)
	case "stats":
		return b.handleStats(ctx, chatID)
	case "report":
		return b.handleReport(ctx, chatID)
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.subscribers.Subscribe(ctx, msg.Chat.ID, msg.From.FirstName, msg.From.UserName); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your todo list and send you a report now and then.</b>\n\n%s",
		escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /list — show the todos\n" +
	"• /add title | description — add a todo\n" +
	"• /done &lt;id&gt; — mark done or reopen\n" +
	"• /delete &lt;id&gt; — delete a todo\n" +
	"• /move &lt;id&gt; &lt;overId&gt; — move a todo onto another one's place\n" +
	"• /rename &lt;id&gt; title — change the title\n" +
	"• /priority &lt;id&gt; 0-3|none — 0 is urgent, 3 is low\n" +
	"• /due &lt;id&gt; YYYY-MM-DD|none — set the due date\n" +
	"• /search text — filter by text, empty clears\n" +
	"• /status pending,completed,overdue|all\n" +
	"• /prio 0,1,none|all — filter by priority\n" +
	"• /sort orderIndex|priority|dueAt|createdAt|title [asc|desc]\n" +
	"• /reset — clear filters and sorting\n" +
	"• /stats — counters, /report — the scheduled report\n" +
	"• /stop — stop reports"

func (b *Bot) handleHelp(chatID int64) error {
	return b.sendText(chatID, helpText)
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) error {
	st, err := b.storeFor(ctx, chatID)
	if err != nil {
		return err
	}
	todo, err := st.Add(ctx, parseDraft(args))
	if err != nil {
		return b.sendFailure(chatID, "add the todo", err)
	}
	log.Printf("[info] chat %d added todo %d", chatID, todo.ID)
	return b.sendText(chatID, fmt.Sprintf("➕ Added <b>#%d</b> %s", todo.ID, escape(todo.Title)))
}

func (b *Bot) handleToggle(ctx context.Context, chatID int64, args string) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(chatID, "Give the todo id: /done 12")
	}
	todo, err := b.toggle(ctx, chatID, id)
	if err != nil {
		return b.sendFailure(chatID, "update the todo", err)
	}
	if todo.CompletedAt != nil {
		return b.sendText(chatID, fmt.Sprintf("✅ <b>#%d</b> %s is done.", todo.ID, escape(todo.Title)))
	}
	return b.sendText(chatID, fmt.Sprintf("↩️ <b>#%d</b> %s is open again.", todo.ID, escape(todo.Title)))
}

func (b *Bot) toggle(ctx context.Context, chatID int64, id uint) (model.Todo, error) {
	st, err := b.storeFor(ctx, chatID)
	if err != nil {
		return model.Todo{}, err
	}
	return st.ToggleCompletePersisted(ctx, id)
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, args string) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(chatID, "Give the todo id: /delete 12")
	}
	return b.deleteTodo(ctx, chatID, id)
}

func (b *Bot) deleteTodo(ctx context.Context, chatID int64, id uint) error {
	st, err := b.storeFor(ctx, chatID)
	if err != nil {
		return err
	}
	if err := st.Delete(ctx, id); err != nil {
		return b.sendFailure(chatID, "delete the todo", err)
	}
	return b.sendText(chatID, fmt.Sprintf("🗑 Todo #%d deleted.", id))
}

func (b *Bot) handleMove(ctx context.Context, chatID int64, args string) error {
	activeID, overID, err := parseIDPair(args)
	if err != nil {
		return b.sendText(chatID, "Give two ids: /move 4 1 puts #4 where #1 is.")
	}
	st, err := b.storeFor(ctx, chatID)
	if err != nil {
		return err
	}
	outcome, err := st.ReorderPersisted(ctx, activeID, overID)
	if err != nil {
		return b.sendFailure(chatID, "move the todo", err)
	}
	if outcome == store.Unchanged {
		return b.sendText(chatID, "Nothing to move.")
	}
	return b.sendTodoList(ctx, chatID)
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, command, args string) error {
	id, value, err := splitIDRest(args)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Usage: /%s &lt;id&gt; value. See /help.", command))
	}

	var patch model.Patch
	switch command {
	case "rename":
		patch.Title = model.Some(value)
	case "priority":
		if patch.Priority, err = parsePriorityArg(value); err != nil {
			return b.sendText(chatID, escape(err.Error()))
		}
	case "due":
		if patch.DueAt, err = parseDueArg(value); err != nil {
			return b.sendText(chatID, escape(err.Error()))
		}
	}

	st, err := b.storeFor(ctx, chatID)
	if err != nil {
		return err
	}
	todo, err := st.UpdatePersisted(ctx, id, patch)
	if err != nil {
		return b.sendFailure(chatID, "update the todo", err)
	}
	return b.sendText(chatID, "✏️ Saved:\n"+service.FormatTodo(todo, b.now()))
}

func (b *Bot) handleFilter(ctx context.Context, chatID int64, command, args string) error {
	st, err := b.storeFor(ctx, chatID)
	if err != nil {
		return err
	}

	filters := st.Filters()
	switch command {
	case "search":
		filters.Search = args
	case "status":
		if filters.Statuses, err = parseStatusList(args); err != nil {
			return b.sendText(chatID, escape(err.Error()))
		}
	case "prio":
		if filters.Priorities, err = parsePriorityList(args); err != nil {
			return b.sendText(chatID, escape(err.Error()))
		}
	case "sort":
		if filters.SortField, filters.SortDirection, err = parseSortArgs(args); err != nil {
			return b.sendText(chatID, "Usage: /sort priority desc. Fields: orderIndex, priority, dueAt, createdAt, title.")
		}
	case "reset":
		filters = model.DefaultFilters()
	}

	if err := st.Load(ctx, filters); err != nil && !errors.Is(err, store.ErrSuperseded) {
		return b.sendFailure(chatID, "load the todos", err)
	}
	return b.renderList(chatID, st)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	stats, err := b.todos.Stats(ctx)
	if err != nil {
		return b.sendFailure(chatID, "count the todos", err)
	}
	return b.sendText(chatID, fmt.Sprintf("📊 Total: %d\n✅ Completed: %d\n🟢 Pending: %d\n⚠️ Overdue: %d",
		stats.Total, stats.Completed, stats.Pending, stats.Overdue))
}

func (b *Bot) handleReport(ctx context.Context, chatID int64) error {
	text, err := b.reports.Summary(ctx, b.now())
	if err != nil {
		return b.sendFailure(chatID, "build the report", err)
	}
	return b.sendText(chatID, text)
}

// SendReports sends the summary to every active subscriber.
func (b *Bot) SendReports(ctx context.Context) error {
	subs, err := b.subscribers.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}
	text, err := b.reports.Summary(ctx, b.now())
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(sub.ChatID, text); err != nil {
			log.Printf("send summary to %d: %v", sub.ChatID, err)
		}
	}
	log.Printf("[info] report sent to %d subscribers", len(subs))
	return nil
}

// storeFor returns the chat's store, loading it on first use.
func (b *Bot) storeFor(ctx context.Context, chatID int64) (*store.Store, error) {
	b.mu.Lock()
	st, ok := b.stores[chatID]
	if !ok {
		st = store.New(b.todos, store.WithValidator(b.validator), store.WithClock(b.now))
		b.stores[chatID] = st
	}
	b.mu.Unlock()

	if st.Loading() {
		if err := st.Reload(ctx); err != nil && !errors.Is(err, store.ErrSuperseded) {
			return nil, err
		}
	}
	return st, nil
}

func (b *Bot) sendTodoList(ctx context.Context, chatID int64) error {
	st, err := b.storeFor(ctx, chatID)
	if err != nil {
		return err
	}
	if err := st.Reload(ctx); err != nil && !errors.Is(err, store.ErrSuperseded) {
		return b.sendFailure(chatID, "load the todos", err)
	}
	return b.renderList(chatID, st)
}

func (b *Bot) renderList(chatID int64, st *store.Store) error {
	todos := st.Todos()
	filterLine := describeFilters(st.Filters())

	if len(todos) == 0 {
		text := "Nothing here yet. Add a todo with /add."
		if filterLine != "" {
			text = filterLine + "\nNo todos match. Use /reset to clear the filters."
		}
		return b.sendText(chatID, text)
	}

	now := b.now()
	var builder strings.Builder
	builder.WriteString("📋 <b>Todos</b>\n")
	if filterLine != "" {
		builder.WriteString(filterLine + "\n")
	}
	builder.WriteByte('\n')

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, todo := range todos {
		if i == maxListed {
			builder.WriteString(fmt.Sprintf("…and %d more. Narrow the list with /search or /status.\n", len(todos)-maxListed))
			break
		}
		mark := "⬜"
		if todo.CompletedAt != nil {
			mark = "✅"
		}
		builder.WriteString(fmt.Sprintf("%s <b>#%d</b> ", mark, todo.ID))
		builder.WriteString(service.FormatTodo(todo, now))

		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s #%d · %s", mark, todo.ID, shortTitle(todo.Title, 24)), fmt.Sprintf("%s%d", cbTogglePrefix, todo.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, todo.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Printf("[info] callback %s from %d", data, cb.From.ID)

	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		id, err := parseID(strings.TrimPrefix(data, cbTogglePrefix))
		if err != nil {
			return nil
		}
		if _, err := b.toggle(ctx, chatID, id); err != nil {
			return b.sendFailure(chatID, "update the todo", err)
		}
		return b.sendTodoList(ctx, chatID)
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseID(strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, chatID, id)
	case strings.HasPrefix(data, cbConfirmPrefix):
		id, err := parseID(strings.TrimPrefix(data, cbConfirmPrefix))
		if err != nil {
			return nil
		}
		return b.deleteTodo(ctx, chatID, id)
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.sendText(chatID, "↩️ Kept it.")
	default:
		return nil
	}
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, id uint) error {
	st, err := b.storeFor(ctx, chatID)
	if err != nil {
		return err
	}
	todo, ok := st.Get(id)
	if !ok {
		return b.sendText(chatID, fmt.Sprintf("Todo #%d is not in your list any more.", id))
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete <b>#%d</b> %s?", todo.ID, escape(todo.Title)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("%s%d", cbConfirmPrefix, id)),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", fmt.Sprintf("%s%d", cbCancelPrefix, id)),
	))
	_, err = b.out.Send(msg)
	return err
}

// sendFailure explains err to the user. Errors the user cannot fix are also returned.
func (b *Bot) sendFailure(chatID int64, action string, err error) error {
	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		return b.sendText(chatID, formatValidation(errs))
	case errors.Is(err, model.ErrNotFound):
		return b.sendText(chatID, "Todo not found in your list. Check /list, or /reset if filters hide it.")
	}
	if sendErr := b.sendText(chatID, fmt.Sprintf("Could not %s: %s", action, escape(err.Error()))); sendErr != nil {
		log.Printf("send failure notice: %v", sendErr)
	}
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelList),
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func escape(s string) string {
	return html.EscapeString(s)
}
