package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/byteshield/lynx/pkg/entities"
	"github.com/byteshield/lynx/pkg/messages"
	"github.com/byteshield/lynx/pkg/tickets"
)

const (
	// OpenTicketButtonID is the ID for the open ticket button.
	OpenTicketButtonID = "open_ticket_button"

	// OpenTicketEmoji is the emoji used on the open ticket button. (Envelope with arrow)
	OpenTicketEmoji = "\U0001F4E9"
)

const (
	// setTicketsCmdName is the command for configuring the ticket system.
	setTicketsCmdName = "settickets"

	// closeTicketCmdName is the command for closing the ticket the command
	// was executed in.
	closeTicketCmdName = "closeticket"

	// categoryOptName is the name of the category option.
	categoryOptName = "category"

	// logChannelOptName is the name of the log channel option.
	logChannelOptName = "log_channel"

	// staffRoleOptName is the name of the staff role option.
	staffRoleOptName = "staff_role"
)

var (
	// setTicketsCmd is the command for configuring the ticket system.
	setTicketsCmd = &discordgo.ApplicationCommand{
		Name:        setTicketsCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This configures the ticket system for your server.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        categoryOptName,
				Type:        discordgo.ApplicationCommandOptionChannel,
				Description: "This is the category that ticket channels will be created under.",
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildCategory,
				},
				Required: true,
			},
			{
				Name:        logChannelOptName,
				Type:        discordgo.ApplicationCommandOptionChannel,
				Description: "This is the channel that ticket audit messages will be sent to.",
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildText,
				},
				Required: true,
			},
			{
				Name:        staffRoleOptName,
				Type:        discordgo.ApplicationCommandOptionRole,
				Description: "This is the role that can view and close tickets.",
				Required:    true,
			},
		},
	}

	// closeTicketCmd is the command for closing the ticket the command was
	// executed in.
	closeTicketCmd = &discordgo.ApplicationCommand{
		Name:        closeTicketCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This closes the ticket for the channel that the command was executed in.",
	}
)

// setTicketsController gates the setup command to the guild owner.
func setTicketsController(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	guild, err := a.Session().Guild(i.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}

	if i.Member.User.ID != guild.OwnerID {
		if err := respondEphemeral(a, i, messages.TicketsOwnerOnlySetup); err != nil {
			return nil, fmt.Errorf("error responding to interaction: %w", err)
		}
		return nil, nil
	}

	return setTicketsProcessor, nil
}

// setTicketsProcessor replaces the guild's ticketing configuration wholesale
// and posts the creation panel into the invoking channel.
func setTicketsProcessor(a IApp, i *discordgo.InteractionCreate) error {
	opts := i.ApplicationCommandData().Options

	category := opts[0].ChannelValue(a.Session())
	logChannel := opts[1].ChannelValue(a.Session())
	staffRole := opts[2].RoleValue(a.Session(), i.GuildID)

	// The command options constrain the channel types, but an option can
	// still arrive stale if the channel changed since the picker was opened.
	if category == nil || category.Type != discordgo.ChannelTypeGuildCategory {
		return respondEphemeral(a, i, "You must provide a category for ticket channels.")
	}
	if logChannel == nil || logChannel.Type != discordgo.ChannelTypeGuildText {
		return respondEphemeral(a, i, "You must provide a text channel for audit messages.")
	}

	guild := &entities.Guild{
		ID: i.GuildID,
		Ticketing: entities.TicketingConfig{
			CategoryID:   category.ID,
			LogChannelID: logChannel.ID,
			StaffRoleID:  staffRole.ID,
		},
	}

	// Save before posting the panel, so a panel is never live for a guild
	// whose configuration did not persist.
	if err := a.GuildDal().SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	if _, err := sendOpenTicketMessage(a, i.ChannelID, i.GuildID); err != nil {
		return fmt.Errorf("error sending open ticket message: %w", err)
	}

	if err := respondEphemeral(a, i, "The ticket system has been configured."); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}
	return nil
}

// sendOpenTicketMessage posts the creation panel with the open-ticket button.
func sendOpenTicketMessage(a IApp, channelID string, guildID string) (*discordgo.Message, error) {
	embed := &discordgo.MessageEmbed{
		Title:       "Open a Ticket",
		Description: "Press the button below to open a private channel with the staff team.",
		Color:       0x3498DB,
	}

	// Dress the panel with the guild banner when one is set.
	if guild, err := a.Session().Guild(guildID); err == nil && guild.Banner != "" {
		embed.Image = &discordgo.MessageEmbedImage{
			URL: fmt.Sprintf("https://cdn.discordapp.com/banners/%s/%s.png", guildID, guild.Banner),
		}
	}

	msg, err := a.Session().ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embed: embed,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    fmt.Sprintf("%s Open Ticket", OpenTicketEmoji),
						Style:    discordgo.PrimaryButton,
						CustomID: OpenTicketButtonID,
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error sending message: %w", err)
	}

	return msg, nil
}

// openTicketProcessor runs the creation flow for an open-ticket button press.
func openTicketProcessor(a IApp, i *discordgo.InteractionCreate) error {
	if !a.OpenLimiter().Allow(i.Member.User.ID) {
		return respondEphemeral(a, i, "Easy there, please wait a moment before trying again.")
	}

	ticket, err := a.Tickets().OpenTicket(context.Background(), i.GuildID, i.Member, time.Now())
	if err != nil {
		dup := new(tickets.DuplicateTicketError)
		switch {
		case errors.Is(err, tickets.ErrOutsideWindow):
			return respondEphemeral(a, i, messages.TicketsOutsideWindow)
		case errors.Is(err, tickets.ErrNotConfigured):
			return respondEphemeral(a, i, messages.TicketsNotConfigured)
		case errors.As(err, &dup):
			if dup.ChannelID == "" {
				return respondEphemeral(a, i, "You already have an open ticket.")
			}
			return respondEphemeral(a, i, fmt.Sprintf("You already have an open ticket: <#%s>", dup.ChannelID))
		default:
			return fmt.Errorf("error opening ticket: %w", err)
		}
	}

	// Respond to the interaction saying that the ticket has been created in
	// channel <channel>. This message is an embedded ephemeral message.
	err = a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Ticket Created",
					Description: fmt.Sprintf("<@%s>, your ticket has been created.", i.Member.User.ID),
					Color:       0x00ff00,
					Fields: []*discordgo.MessageEmbedField{
						{
							Name:   "Ticket Channel",
							Value:  fmt.Sprintf("<#%s>", ticket.ChannelID),
							Inline: true,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}
	return nil
}

// closeButtonProcessor closes a ticket from its close button. The button's
// custom ID carries the authorization identity captured when the ticket was
// opened.
func closeButtonProcessor(a IApp, i *discordgo.InteractionCreate) error {
	binding, err := tickets.ParseCloseBinding(i.MessageComponentData().CustomID)
	if err != nil {
		return fmt.Errorf("error parsing close binding: %w", err)
	}

	err = a.Tickets().CloseByControl(context.Background(), binding, i.ChannelID, i.Member)
	if errors.Is(err, tickets.ErrNotAuthorized) {
		return respondEphemeral(a, i, messages.TicketsNotAuthorizedClose)
	} else if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}

	// The channel the interaction came from is gone; there is nothing left
	// to respond to.
	return nil
}

// closeTicketController resolves the close command; authorization happens in
// the flow against the guild's current configuration.
func closeTicketController(_ IApp, _ *discordgo.InteractionCreate) (commandProcessor, error) {
	return closeTicketProcessor, nil
}

func closeTicketProcessor(a IApp, i *discordgo.InteractionCreate) error {
	err := a.Tickets().CloseByCommand(context.Background(), i.GuildID, i.ChannelID, i.Member)
	switch {
	case errors.Is(err, tickets.ErrNotConfigured):
		return respondEphemeral(a, i, messages.TicketsNotConfigured)
	case errors.Is(err, tickets.ErrNotAuthorized):
		return respondEphemeral(a, i, messages.TicketsStaffOnlyCommand)
	case err != nil:
		return fmt.Errorf("error closing ticket: %w", err)
	}

	// Same as the button path: the invoking channel is deleted on success.
	return nil
}
