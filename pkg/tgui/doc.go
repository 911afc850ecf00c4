// Package tgui renders Telegram HTML text and inline keyboards for the bot menus.
//
// Everything here assumes ParseMode "HTML". Values of type H are already escaped.
package tgui
