package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/priority"
	"github.com/LarryDahl/TODOv2/internal/repository"
	"github.com/LarryDahl/TODOv2/internal/schedule"
	"github.com/LarryDahl/TODOv2/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTaskTitle
	stageTaskCategory
	stageTaskKind
	stageTaskDue
	stageProjectTitle
	stageProjectSteps
	stageReminderText
	stageReminderWhen
)

const (
	cbCompletePrefix    = "complete:"
	cbDeletePrefix      = "delete:"
	cbRestorePrefix     = "restore:"
	cbAdvancePrefix     = "advance:"
	cbCancelProjPrefix  = "cancelproj:"
	cbDonePagePrefix    = "donepage:"
	cbDeletedPagePrefix = "delpage:"
)

const (
	btnSkip         = "⏭️ Skip"
	btnCancelDialog = "⏪ Cancel input"
	btnKindRegular  = "📌 Regular"
	btnKindDeadline = "⏰ Deadline"
	btnKindAt       = "📅 Scheduled"
	noCategory      = "No category"

	menuLabelNewTask  = "➕ New task"
	menuLabelTasks    = "📋 Tasks"
	menuLabelProjects = "📦 Projects"
	menuLabelHelp     = "ℹ️ Help"

	historyPageSize = 10
	dateTimeLayout  = "2006-01-02 15:04"
	dateLayout      = "2006-01-02"
)

type conversationState struct {
	stage        conversationStage
	task         service.TaskInput
	projectTitle string
	reminderText string
}

// Bot aggregates the Telegram API with the services behind the chat surface.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	categorySvc   *service.CategoryService
	taskSvc       *service.TaskService
	projectSvc    *service.ProjectService
	jobSvc        *service.JobService
	digestSvc     *service.DigestService
	statsSvc      *service.StatsService
	clk           clock.Clock
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, categorySvc *service.CategoryService, taskSvc *service.TaskService, projectSvc *service.ProjectService, jobSvc *service.JobService, digestSvc *service.DigestService, statsSvc *service.StatsService, clk clock.Clock) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		categorySvc:   categorySvc,
		taskSvc:       taskSvc,
		projectSvc:    projectSvc,
		jobSvc:        jobSvc,
		digestSvc:     digestSvc,
		statsSvc:      statsSvc,
		clk:           clk,
		conversations: make(map[int64]*conversationState),
	}, nil
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

	return nil
}

// Notify sends plain HTML text to a chat. Job runners use it for reminder
// delivery.
func (b *Bot) Notify(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled. Ready when you are.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Try /newtask to add a task, or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "complete":
		return b.handleComplete(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "edit":
		return b.handleEdit(ctx, msg)
	case "restore":
		return b.handleRestore(ctx, msg)
	case "completed":
		return b.handleHistory(ctx, msg, model.EventCompleted, 0)
	case "deleted":
		return b.handleHistory(ctx, msg, model.EventDeleted, 0)
	case "newproject":
		return b.startNewProjectConversation(ctx, msg)
	case "projects":
		return b.handleListProjects(ctx, msg)
	case "advance":
		return b.handleAdvance(ctx, msg)
	case "addstep":
		return b.handleAddStep(ctx, msg)
	case "remind":
		return b.startReminderConversation(ctx, msg)
	case "reminders":
		return b.handleListReminders(ctx, msg)
	case "cancelreminder":
		return b.handleCancelReminder(ctx, msg)
	case "digest":
		return b.handleDigest(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "timezone":
		return b.handleTimezone(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "forgetme":
		return b.handleForgetMe(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I track your tasks, projects and reminders.</b>\n\n"+
			"Add trailing <code>!</code> marks to a task title to raise its priority, "+
			"e.g. <code>Pay rent!!!</code>.\n\nStart with /newtask or see /help.",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /newtask — add a task step by step\n" +
		"• /tasks — active tasks in priority order\n" +
		"• /complete &lt;id&gt; — mark a task done\n" +
		"• /delete &lt;id&gt; [reason] — remove a task\n" +
		"• /edit &lt;id&gt; &lt;new title&gt; — retitle, markers re-read\n" +
		"• /completed, /deleted — browse history, restore from there\n" +
		"• /restore &lt;entry id&gt; — bring a task back\n" +
		"• /newproject — a project with ordered steps\n" +
		"• /projects — your projects\n" +
		"• /advance &lt;id&gt; — finish the current step\n" +
		"• /addstep &lt;id&gt; &lt;text&gt; — append a step\n" +
		"• /remind — set a one-off or repeating reminder\n" +
		"• /reminders — upcoming reminders\n" +
		"• /cancelreminder &lt;id&gt; — drop a reminder\n" +
		"• /digest — your summary right now\n" +
		"• /stats [days] — completed/deleted counts and today's score\n" +
		"• /timezone &lt;IANA zone&gt; — e.g. Europe/Berlin\n" +
		"• /categories — known categories\n" +
		"• /cancel — abort the current input"
	return b.sendText(msg.Chat.ID, text)
}

// Task conversation: title, category, kind, optional due instant.

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageTaskTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID,
		"🆕 New task.\n<b>Step 1:</b> what is it? Trailing <code>!</code> marks raise priority.",
		cancelKeyboard())
}

func (b *Bot) startNewProjectConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageProjectTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "📦 New project.\n<b>Step 1:</b> name it.", cancelKeyboard())
}

func (b *Bot) startReminderConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageReminderText})
	return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ New reminder.\n<b>Step 1:</b> what should I say?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTaskTitle:
		state.task.Title = text
		state.stage = stageTaskCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Pick a category or type your own (or Skip).", categoryKeyboard())
	case stageTaskCategory:
		if !isSkipInput(text) {
			state.task.Category = text
		}
		state.stage = stageTaskKind
		return b.sendWithReplyMarkup(msg.Chat.ID, "📌 What kind of task is it?", kindKeyboard())
	case stageTaskKind:
		kind, ok := parseKindInput(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the buttons.", kindKeyboard())
		}
		state.task.Kind = kind
		if kind == model.TaskKindRegular {
			err := b.finishTaskCreation(ctx, msg.From, state.task, msg.Chat.ID)
			b.clearConversation(msg.From.ID)
			return err
		}
		state.stage = stageTaskDue
		return b.sendWithReplyMarkup(msg.Chat.ID,
			"⏰ When? Use <code>2026-09-30 18:00</code> or just <code>2026-09-30</code>.",
			cancelKeyboard())
	case stageTaskDue:
		due, err := b.parseUserTime(ctx, msg.From, text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID,
				"I can't read that. Use <code>2026-09-30 18:00</code> or <code>2026-09-30</code>.",
				cancelKeyboard())
		}
		state.task.DueAt = &due
		err = b.finishTaskCreation(ctx, msg.From, state.task, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	case stageProjectTitle:
		state.projectTitle = text
		state.stage = stageProjectSteps
		return b.sendWithReplyMarkup(msg.Chat.ID,
			"🧩 Now the steps, one per line, front to back:\n<code>buy paint\nsand the door\npaint the door</code>",
			cancelKeyboard())
	case stageProjectSteps:
		err := b.finishProjectCreation(ctx, msg.From, state.projectTitle, strings.Split(msg.Text, "\n"), msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	case stageReminderText:
		state.reminderText = text
		state.stage = stageReminderWhen
		return b.sendWithReplyMarkup(msg.Chat.ID,
			"⏰ When?\n• once: <code>2026-09-30 18:00</code>\n• repeating: <code>every 90m</code>\n• cron: <code>cron 0 9 * * *</code>",
			cancelKeyboard())
	case stageReminderWhen:
		err := b.finishReminderCreation(ctx, msg.From, state.reminderText, text, msg.Chat.ID)
		if err == nil {
			b.clearConversation(msg.From.ID)
		}
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Try again with /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, from *tgbotapi.User, input service.TaskInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.Create(ctx, user, input)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			return b.sendText(chatID, fmt.Sprintf("That won't work: %s", escape(reasonOf(err))))
		}
		return b.sendText(chatID, fmt.Sprintf("Could not save the task: %s", escape(err.Error())))
	}

	log.Printf("[info] task created id=%d user=%d kind=%s priority=%d", task.ID, user.ID, task.Kind, task.Priority)

	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(priority.RenderTitle(task.Title, task.Priority))))
	if task.DueAt != nil {
		summary.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", b.formatInstant(*task.DueAt, user.Timezone)))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(summary.String()))
	msg.ReplyMarkup = mainMenuKeyboard()
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) finishProjectCreation(ctx context.Context, from *tgbotapi.User, title string, steps []string, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	project, err := b.projectSvc.Create(ctx, user, title, steps)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			return b.sendText(chatID, fmt.Sprintf("That won't work: %s", escape(reasonOf(err))))
		}
		return b.sendText(chatID, fmt.Sprintf("Could not save the project: %s", escape(err.Error())))
	}

	log.Printf("[info] project created id=%d user=%d steps=%d", project.ID, user.ID, len(project.Steps))
	return b.sendProjectCard(ctx, chatID, user, project.ID)
}

func (b *Bot) finishReminderCreation(ctx context.Context, from *tgbotapi.User, text, when string, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	spec, err := b.parseWhen(ctx, from, when)
	if err != nil {
		return b.sendWithReplyMarkup(chatID,
			"I can't read that. Try <code>2026-09-30 18:00</code>, <code>every 90m</code> or <code>cron 0 9 * * *</code>.",
			cancelKeyboard())
	}

	payload, err := notifyPayload(user.TelegramID, text)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the reminder: %s", escape(err.Error())))
	}

	job, err := b.jobSvc.Enqueue(ctx, user, "bot", "notify", spec, payload)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			return b.sendWithReplyMarkup(chatID,
				fmt.Sprintf("That won't work: %s", escape(reasonOf(err))), cancelKeyboard())
		}
		return b.sendText(chatID, fmt.Sprintf("Could not save the reminder: %s", escape(err.Error())))
	}

	log.Printf("[info] reminder enqueued id=%d user=%d kind=%s", job.ID, user.ID, job.ScheduleKind)
	return b.sendText(chatID, fmt.Sprintf("⏰ Reminder #%d set, first run %s.",
		job.ID, b.formatInstant(job.DueAt, user.Timezone)))
}

// Task commands.

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, ok := parseIDArg(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give me a task ID: /complete 12")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.completeTaskAndRefresh(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(strings.TrimSpace(msg.CommandArguments()))
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, "Give me a task ID: /delete 12 bought it already")
	}
	taskID, ok := parseIDArg(args[0])
	if !ok {
		return b.sendText(msg.Chat.ID, "The task ID must be a number.")
	}
	reason := strings.Join(args[1:], " ")

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	event, err := b.taskSvc.Delete(ctx, user, taskID, reason)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.sendText(msg.Chat.ID, "Task not found.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	log.Printf("[info] task deleted id=%d user=%d", taskID, user.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Task \"%s\" deleted. Restore with /restore %d.", escape(event.Title), event.ID))
}

func (b *Bot) handleEdit(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.SplitN(strings.TrimSpace(msg.CommandArguments()), " ", 2)
	if len(args) < 2 {
		return b.sendText(msg.Chat.ID, "Usage: /edit 12 Pay rent!!!")
	}
	taskID, ok := parseIDArg(args[0])
	if !ok {
		return b.sendText(msg.Chat.ID, "The task ID must be a number.")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.Update(ctx, user, taskID, service.TaskPatch{Title: &args[1]})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.sendText(msg.Chat.ID, "Task not found.")
		}
		if errors.Is(err, model.ErrValidation) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("That won't work: %s", escape(reasonOf(err))))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	return b.sendText(msg.Chat.ID, fmt.Sprintf("✏️ Task #%d is now \"%s\".",
		task.ID, escape(priority.RenderTitle(task.Title, task.Priority))))
}

func (b *Bot) handleRestore(ctx context.Context, msg *tgbotapi.Message) error {
	eventID, ok := parseIDArg(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give me a history entry ID: /restore 7 (see /completed and /deleted)")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.restoreAndRefresh(ctx, msg.Chat.ID, user, eventID)
}

func (b *Bot) restoreAndRefresh(ctx context.Context, chatID int64, user *model.User, eventID uint) error {
	task, err := b.taskSvc.Restore(ctx, user, eventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.sendText(chatID, "History entry not found, maybe it was already restored.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	log.Printf("[info] task restored id=%d user=%d", task.ID, user.ID)
	if err := b.sendText(chatID, fmt.Sprintf("♻️ Task \"%s\" is back as #%d.",
		escape(priority.RenderTitle(task.Title, task.Priority)), task.ID)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	event, err := b.taskSvc.Complete(ctx, user, taskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.sendText(chatID, "Task not found or already closed.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	log.Printf("[info] task completed id=%d user=%d", taskID, user.ID)
	if err := b.sendText(chatID, fmt.Sprintf("✅ Task \"%s\" done. Undo with /restore %d.",
		escape(event.Title), event.ID)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.taskSvc.ListActive(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not fetch tasks: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "No active tasks. Add one with /newtask.")
	}

	categories, _ := b.categorySvc.List(ctx, user)
	catNames := make(map[uint]string)
	for _, cat := range categories {
		catNames[cat.ID] = cat.Name
	}

	now := b.clk.Now()
	var builder strings.Builder
	builder.WriteString("📋 <b>Active tasks</b> (most urgent first)\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(b.formatTaskLine(task, catNames, now, user.Timezone))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 20)),
				fmt.Sprintf("%s%d", cbCompletePrefix, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) formatTaskLine(task model.Task, catNames map[uint]string, now time.Time, tz string) string {
	var sb strings.Builder

	icon := "🟢"
	var due time.Time
	hasDue := false
	if task.DueAt != nil {
		if parsed, err := clock.ParseUTC(*task.DueAt); err == nil {
			due = parsed
			hasDue = true
			switch {
			case now.After(due):
				icon = "⚠️"
			case due.Sub(now) <= 48*time.Hour:
				icon = "⏳"
			}
		}
	}

	sb.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", icon, task.ID,
		escape(priority.RenderTitle(task.Title, task.Priority))))
	if task.CategoryID != nil {
		if name, ok := catNames[*task.CategoryID]; ok && strings.TrimSpace(name) != "" {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", escape(strings.TrimSpace(name))))
		}
	}
	sb.WriteByte('\n')

	if hasDue {
		label := "due"
		if task.Kind == model.TaskKindScheduled {
			label = "at"
		}
		local := clock.InZone(due, tz)
		if now.After(due) {
			sb.WriteString(fmt.Sprintf("   ⏰ %s %s — <b>overdue</b>\n", label, local.Format(dateTimeLayout)))
		} else {
			sb.WriteString(fmt.Sprintf("   ⏰ %s %s\n", label, local.Format(dateTimeLayout)))
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}

// History browsing with pagination and restore buttons.

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message, action string, offset int) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendHistoryPage(ctx, msg.Chat.ID, user, action, offset)
}

func (b *Bot) sendHistoryPage(ctx context.Context, chatID int64, user *model.User, action string, offset int) error {
	var (
		events []model.TaskEvent
		err    error
		title  string
		prefix string
	)
	if action == model.EventCompleted {
		events, err = b.taskSvc.ListCompleted(ctx, user, historyPageSize+1, offset)
		title = "✅ <b>Completed tasks</b>"
		prefix = cbDonePagePrefix
	} else {
		events, err = b.taskSvc.ListDeleted(ctx, user, historyPageSize+1, offset)
		title = "🗑 <b>Deleted tasks</b>"
		prefix = cbDeletedPagePrefix
	}
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not fetch history: %s", escape(err.Error())))
	}
	if len(events) == 0 && offset == 0 {
		return b.sendText(chatID, "Nothing here yet.")
	}

	hasMore := len(events) > historyPageSize
	if hasMore {
		events = events[:historyPageSize]
	}

	var builder strings.Builder
	builder.WriteString(title + "\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, event := range events {
		builder.WriteString(fmt.Sprintf("• <b>%d</b> %s — %s", event.ID, escape(event.Title),
			b.formatInstant(event.At, user.Timezone)))
		if event.Reason != "" {
			builder.WriteString(fmt.Sprintf(" <i>(%s)</i>", escape(event.Reason)))
		}
		builder.WriteByte('\n')
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("♻️ %d · %s", event.ID, shortTitle(event.Title, 20)),
				fmt.Sprintf("%s%d", cbRestorePrefix, event.ID)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if offset > 0 {
		prev := offset - historyPageSize
		if prev < 0 {
			prev = 0
		}
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Newer", fmt.Sprintf("%s%d", prefix, prev)))
	}
	if hasMore {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Older ➡️", fmt.Sprintf("%s%d", prefix, offset+historyPageSize)))
	}
	if len(nav) > 0 {
		buttons = append(buttons, nav)
	}

	out := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	if len(buttons) > 0 {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	out.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(out)
	return err
}

// Project commands.

func (b *Bot) handleListProjects(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	projects, err := b.projectSvc.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not fetch projects: %s", escape(err.Error())))
	}
	if len(projects) == 0 {
		return b.sendText(msg.Chat.ID, "No projects yet. Start one with /newproject.")
	}

	var builder strings.Builder
	builder.WriteString("📦 <b>Projects</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, project := range projects {
		icon := "🟢"
		switch project.Status {
		case model.ProjectCompleted:
			icon = "✅"
		case model.ProjectCancelled:
			icon = "🚫"
		}
		builder.WriteString(fmt.Sprintf("%s <b>#%d</b> %s (%s)\n", icon, project.ID, escape(project.Title), project.Status))
		if project.Status == model.ProjectActive {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("▶️ #%d · %s", project.ID, shortTitle(project.Title, 18)),
					fmt.Sprintf("%s%d", cbAdvancePrefix, project.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🚫", fmt.Sprintf("%s%d", cbCancelProjPrefix, project.ID)),
			))
		}
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(builder.String()))
	if len(buttons) > 0 {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	out.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) sendProjectCard(ctx context.Context, chatID int64, user *model.User, projectID uint) error {
	project, err := b.projectSvc.Get(ctx, user, projectID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.sendText(chatID, "Project not found.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	steps, err := b.projectSvc.Steps(ctx, user, projectID)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📦 <b>#%d %s</b> (%s)\n\n", project.ID, escape(project.Title), project.Status))
	for _, step := range steps {
		mark := "▫️"
		if step.Status == model.StepDone {
			mark = "✔️"
		} else if project.CurrentStepOrder != nil && step.OrderIndex == *project.CurrentStepOrder {
			mark = "▶️"
		}
		builder.WriteString(fmt.Sprintf("%s %d. %s\n", mark, step.OrderIndex, escape(step.Text)))
	}
	if project.Status == model.ProjectActive {
		builder.WriteString(fmt.Sprintf("\nFinish the current step with /advance %d.", project.ID))
	}

	out := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	out.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleAdvance(ctx context.Context, msg *tgbotapi.Message) error {
	projectID, ok := parseIDArg(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give me a project ID: /advance 3")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.advanceAndReport(ctx, msg.Chat.ID, user, projectID)
}

func (b *Bot) advanceAndReport(ctx context.Context, chatID int64, user *model.User, projectID uint) error {
	outcome, err := b.projectSvc.Advance(ctx, user, projectID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.sendText(chatID, "No active project with that ID.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	log.Printf("[info] project advanced id=%d action=%s", projectID, outcome.Action)
	if outcome.Action == repository.AdvanceActionCompleted {
		return b.sendText(chatID, fmt.Sprintf("🎉 %s", escape(outcome.Summary)))
	}
	if err := b.sendText(chatID, fmt.Sprintf("✔️ %s", escape(outcome.Summary))); err != nil {
		return err
	}
	return b.sendProjectCard(ctx, chatID, user, projectID)
}

func (b *Bot) handleAddStep(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.SplitN(strings.TrimSpace(msg.CommandArguments()), " ", 2)
	if len(args) < 2 {
		return b.sendText(msg.Chat.ID, "Usage: /addstep 3 hang the door back")
	}
	projectID, ok := parseIDArg(args[0])
	if !ok {
		return b.sendText(msg.Chat.ID, "The project ID must be a number.")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	if _, err := b.projectSvc.AddStep(ctx, user, projectID, args[1]); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.sendText(msg.Chat.ID, "Project not found.")
		}
		if errors.Is(err, model.ErrValidation) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("That won't work: %s", escape(reasonOf(err))))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	return b.sendProjectCard(ctx, msg.Chat.ID, user, projectID)
}

// Reminder commands.

func (b *Bot) handleListReminders(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	jobs, err := b.jobSvc.ListPending(ctx, user, 20)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not fetch reminders: %s", escape(err.Error())))
	}
	if len(jobs) == 0 {
		return b.sendText(msg.Chat.ID, "No upcoming reminders. Set one with /remind.")
	}

	var builder strings.Builder
	builder.WriteString("⏰ <b>Upcoming reminders</b>\n\n")
	for _, job := range jobs {
		builder.WriteString(fmt.Sprintf("• <b>#%d</b> %s — %s (%s)\n",
			job.ID, escape(notifyText(job.Payload)), b.formatInstant(job.DueAt, user.Timezone), job.ScheduleKind))
	}
	builder.WriteString("\nDrop one with /cancelreminder &lt;id&gt;.")
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleCancelReminder(ctx context.Context, msg *tgbotapi.Message) error {
	jobID, ok := parseIDArg(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give me a reminder ID: /cancelreminder 4")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.jobSvc.Cancel(ctx, user, jobID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.sendText(msg.Chat.ID, "Reminder not found.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Reminder #%d cancelled.", jobID))
}

// Miscellaneous commands.

func (b *Bot) handleDigest(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.digestSvc.DailySummary(ctx, *user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the digest: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	days := 7
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed <= 0 || parsed > 365 {
			return b.sendText(msg.Chat.ID, "Give me a day count between 1 and 365: /stats 30")
		}
		days = parsed
	}

	stats, err := b.statsSvc.Statistics(ctx, user, days)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build statistics: %s", escape(err.Error())))
	}
	progress, err := b.statsSvc.DailyProgress(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build statistics: %s", escape(err.Error())))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📊 <b>Last %d days</b>\n", stats.Days))
	builder.WriteString(fmt.Sprintf("• ✅ Completed: %d\n", stats.Completed))
	builder.WriteString(fmt.Sprintf("• 🗑 Deleted: %d\n", stats.Deleted))
	builder.WriteString(fmt.Sprintf("• 📋 Active now: %d\n", stats.Active))
	builder.WriteString(fmt.Sprintf("\n🔥 Today's progress: <b>%d/100</b>", progress))
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) handleTimezone(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if args == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Your timezone is <b>%s</b>. Change it with /timezone Europe/Berlin.", escape(user.Timezone)))
	}
	if _, err := time.LoadLocation(args); err != nil {
		return b.sendText(msg.Chat.ID, "I don't know that zone. Use an IANA name like Europe/Berlin.")
	}
	if err := b.userRepo.SetTimezone(ctx, user.ID, args); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🌍 Timezone set to <b>%s</b>.", escape(args)))
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	categories, err := b.categorySvc.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not fetch categories: %s", escape(err.Error())))
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "No categories yet. Add them while creating a task.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("• %s\n", escape(strings.TrimSpace(cat.Name))))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleForgetMe(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if !strings.EqualFold(args, "yes") {
		return b.sendText(msg.Chat.ID, "This wipes all your data. If you mean it: /forgetme yes")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.userRepo.Delete(ctx, user.ID); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	log.Printf("[info] user wiped id=%d", user.ID)
	return b.Notify(msg.Chat.ID, "🧹 All your data is gone. /start begins from scratch.")
}

// SendDailyReports sends a digest to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.digestSvc.DailySummary(ctx, user)
		if err != nil {
			log.Printf("build digest for user %d: %v", user.TelegramID, err)
			continue
		}
		if err := b.Notify(user.TelegramID, text); err != nil {
			log.Printf("send digest to %d: %v", user.TelegramID, err)
		}
	}
	return nil
}

// Callbacks.

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		taskID, err := parseCallbackID(data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		return b.completeTaskAndRefresh(ctx, chatID, user, taskID)
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID, err := parseCallbackID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		event, err := b.taskSvc.Delete(ctx, user, taskID, "")
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return b.sendText(chatID, "Task not found or already closed.")
			}
			return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
		}
		if err := b.sendText(chatID, fmt.Sprintf("🗑 Task \"%s\" deleted. Undo with /restore %d.",
			escape(event.Title), event.ID)); err != nil {
			return err
		}
		return b.sendTaskList(ctx, chatID, user)
	case strings.HasPrefix(data, cbRestorePrefix):
		eventID, err := parseCallbackID(data, cbRestorePrefix)
		if err != nil {
			return nil
		}
		return b.restoreAndRefresh(ctx, chatID, user, eventID)
	case strings.HasPrefix(data, cbAdvancePrefix):
		projectID, err := parseCallbackID(data, cbAdvancePrefix)
		if err != nil {
			return nil
		}
		return b.advanceAndReport(ctx, chatID, user, projectID)
	case strings.HasPrefix(data, cbCancelProjPrefix):
		projectID, err := parseCallbackID(data, cbCancelProjPrefix)
		if err != nil {
			return nil
		}
		if err := b.projectSvc.Cancel(ctx, user, projectID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return b.sendText(chatID, "No active project with that ID.")
			}
			return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
		}
		return b.sendText(chatID, fmt.Sprintf("🚫 Project #%d cancelled.", projectID))
	case strings.HasPrefix(data, cbDonePagePrefix):
		offset, err := parseCallbackID(data, cbDonePagePrefix)
		if err != nil {
			return nil
		}
		return b.sendHistoryPage(ctx, chatID, user, model.EventCompleted, int(offset))
	case strings.HasPrefix(data, cbDeletedPagePrefix):
		offset, err := parseCallbackID(data, cbDeletedPagePrefix)
		if err != nil {
			return nil
		}
		return b.sendHistoryPage(ctx, chatID, user, model.EventDeleted, int(offset))
	default:
		return nil
	}
}

// Helpers.

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelProjects):
		return true, b.handleListProjects(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// parseUserTime reads a local date or datetime in the user's timezone.
func (b *Bot) parseUserTime(ctx context.Context, from *tgbotapi.User, text string) (time.Time, error) {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		loc = time.UTC
	}
	if parsed, err := time.ParseInLocation(dateTimeLayout, text, loc); err == nil {
		return parsed, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, text, loc)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

// parseWhen reads a reminder schedule: a datetime for one-offs, "every Nm"
// for intervals, "cron <expr>" for cron.
func (b *Bot) parseWhen(ctx context.Context, from *tgbotapi.User, text string) (schedule.Spec, error) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	if strings.HasPrefix(lower, "every ") {
		raw := strings.TrimSpace(text[len("every "):])
		raw = strings.TrimSuffix(strings.ToLower(raw), "m")
		minutes, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("parse interval: %w", err)
		}
		return schedule.Interval{Minutes: minutes}, nil
	}

	if strings.HasPrefix(lower, "cron ") {
		return schedule.Cron{Expr: strings.TrimSpace(text[len("cron "):])}, nil
	}

	at, err := b.parseUserTime(ctx, from, text)
	if err != nil {
		return nil, err
	}
	return schedule.Once{At: at}, nil
}

func (b *Bot) formatInstant(iso, tz string) string {
	parsed, err := clock.ParseUTC(iso)
	if err != nil {
		return iso
	}
	return clock.InZone(parsed, tz).Format(dateTimeLayout)
}

func parseIDArg(raw string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(value), true
}

func parseCallbackID(data, prefix string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func parseKindInput(text string) (string, bool) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case strings.ToLower(btnKindRegular), model.TaskKindRegular:
		return model.TaskKindRegular, true
	case strings.ToLower(btnKindDeadline), model.TaskKindDeadline:
		return model.TaskKindDeadline, true
	case strings.ToLower(btnKindAt), model.TaskKindScheduled:
		return model.TaskKindScheduled, true
	default:
		return "", false
	}
}

// reasonOf strips the sentinel prefix from a validation error for display.
func reasonOf(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelProjects),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func kindKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnKindRegular),
			tgbotapi.NewKeyboardButton(btnKindDeadline),
			tgbotapi.NewKeyboardButton(btnKindAt),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Work"),
			tgbotapi.NewKeyboardButton("Home"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Errands"),
			tgbotapi.NewKeyboardButton("Health"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel input" || value == "cancel"
}
